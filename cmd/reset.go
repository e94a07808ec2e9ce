package cmd

import (
	"context"
	"fmt"
	"os"

	"echofm/cache"
	"echofm/config"
	"echofm/db"
	"echofm/repository"
	"echofm/storage"

	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe the library",
	Long:  `Removes every song, favorite and stored payload. Irreversible.`,
	Run: func(cmd *cobra.Command, args []string) {
		if !resetYes {
			fmt.Fprintln(os.Stderr, "refusing to reset without --yes")
			os.Exit(1)
		}

		cfg := config.Load()
		ctx := context.Background()

		if err := db.ConnectDB(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "connect database: %v\n", err)
			os.Exit(1)
		}
		defer db.CloseDB()

		blobs, err := storage.NewMinioStore(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connect object storage: %v\n", err)
			os.Exit(1)
		}

		songs := repository.NewMySQLSongRepository(db.DB)
		favorites := repository.NewMySQLFavoriteRepository(db.DB)

		if err := songs.ResetSongs(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "reset songs: %v\n", err)
			os.Exit(1)
		}
		if err := favorites.ResetFavorites(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "reset favorites: %v\n", err)
			os.Exit(1)
		}
		if err := blobs.RemovePrefix(ctx, "songs/"); err != nil {
			fmt.Fprintf(os.Stderr, "remove song payloads: %v\n", err)
			os.Exit(1)
		}
		if err := blobs.RemovePrefix(ctx, "favorites/"); err != nil {
			fmt.Fprintf(os.Stderr, "remove favorite payloads: %v\n", err)
			os.Exit(1)
		}

		// Best effort: a stale playlist mirror is harmless but confusing.
		if err := cache.ConnectRedis(cfg); err == nil {
			defer cache.CloseRedis()
			if err := cache.ClearPlaylist(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "clear playlist mirror: %v\n", err)
			}
		}

		fmt.Println("library reset complete")
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Confirm the reset")
	rootCmd.AddCommand(resetCmd)
}
