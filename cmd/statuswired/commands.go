package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagConfigPath string
	flagDBDriver   string
	flagDBDSN      string
	flagHTTPAddr   string
	flagLogLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "statuswired",
	Short:         "statuswire daemon: firehose ingestion, webhook dispatch, management API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the statuswired version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "statuswired %s\n", version)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the firehose consumer, dispatch worker, and management API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the statuswire schema migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to a JSON config file")
	rootCmd.PersistentFlags().StringVar(&flagDBDriver, "db-driver", "sqlite", "database driver: sqlite or postgres")
	rootCmd.PersistentFlags().StringVar(&flagDBDSN, "db-dsn", "file:statuswire.db?_journal_mode=WAL", "database DSN")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error")
	serveCmd.Flags().StringVar(&flagHTTPAddr, "http-addr", ":8480", "management API listen address")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}
