package cmd

import (
	"context"
	"fmt"
	"os"

	"echofm/config"
	"echofm/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioDelete bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Inspect the payload bucket",
	Long: `Connects to MinIO, ensures the configured bucket exists and lists the
payloads under a prefix. With --delete it removes everything under the prefix.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		ctx := context.Background()

		blobs, err := storage.NewMinioStore(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connect object storage: %v\n", err)
			os.Exit(1)
		}

		if minioDelete {
			if minioPrefix == "" {
				fmt.Fprintln(os.Stderr, "refusing to delete without --prefix")
				os.Exit(1)
			}
			if err := blobs.RemovePrefix(ctx, minioPrefix); err != nil {
				fmt.Fprintf(os.Stderr, "remove payloads: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("removed payloads under %q\n", minioPrefix)
			return
		}

		objects, err := blobs.List(ctx, minioPrefix)
		if err != nil {
			fmt.Fprintf(os.Stderr, "list payloads: %v\n", err)
			os.Exit(1)
		}

		var total int64
		for _, obj := range objects {
			fmt.Printf("%12d  %s\n", obj.Size, obj.Key)
			total += obj.Size
		}
		fmt.Printf("%d payloads, %d bytes, bucket %q\n", len(objects), total, cfg.MinioBucket)
	},
}

func init() {
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "Filter payloads by key prefix")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "Delete every payload under the prefix")
	minioCmd.Example = `  # list all payloads
  echofm minio

  # list song payloads only
  echofm minio -p songs/

  # drop all favorite snapshots
  echofm minio -d -p favorites/`
	rootCmd.AddCommand(minioCmd)
}
