package cmd

import (
	"fmt"
	"os"

	"echofm/cache"
	"echofm/config"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis connection",
	Long:  `Connects to the configured Redis instance and runs a round-trip check.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		if err := cache.ConnectRedis(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "connect redis: %v\n", err)
			os.Exit(1)
		}
		defer cache.CloseRedis()

		if err := cache.TestRedis(); err != nil {
			fmt.Fprintf(os.Stderr, "redis check failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("redis connection OK")
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
