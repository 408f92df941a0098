package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ytdash",
		Short: "Track channel uploads across multiple YouTube identities",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(migrateCmd())
	root.AddCommand(syncCmd())
	root.AddCommand(errorsCmd())
	root.AddCommand(identityCmd())
	root.AddCommand(runCmd())

	return root
}

func migrateCmd() *cobra.Command {
	var target int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(target)
		},
	}
	cmd.Flags().IntVar(&target, "target", 0, "stop after this version (0 = latest)")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show current schema version and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateStatus()
		},
	}

	history := &cobra.Command{
		Use:   "history",
		Short: "Show applied migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateHistory()
		},
	}

	var createVersion int
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Generate a migration stub",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateCreate(args[0], createVersion)
		},
	}
	create.Flags().IntVar(&createVersion, "version", 0, "explicit version (0 = next free)")

	cmd.AddCommand(status, history, create)
	return cmd
}

func syncCmd() *cobra.Command {
	var (
		maxVideos int
		subsOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile subscriptions and fetch new videos for all identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(maxVideos, subsOnly)
		},
	}
	cmd.Flags().IntVar(&maxVideos, "videos", 0, "videos to fetch per channel (0 = from config)")
	cmd.Flags().BoolVar(&subsOnly, "subscriptions-only", false, "skip video ingestion")
	return cmd
}

func errorsCmd() *cobra.Command {
	var identityID int64

	cmd := &cobra.Command{
		Use:   "errors",
		Short: "List unresolved sync errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runErrorsList(identityID)
		},
	}
	cmd.Flags().Int64Var(&identityID, "identity", 0, "scope to one identity id")

	resolve := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Mark a sync error resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runErrorsResolve(args[0])
		},
	}

	var days int
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete old resolved sync errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runErrorsPurge(days)
		},
	}
	purge.Flags().IntVar(&days, "days", 30, "delete resolved errors older than this many days")

	cmd.AddCommand(resolve, purge)
	return cmd
}

func identityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage tracked identities",
	}

	var (
		name       string
		accountID  string
		credential string
		color      string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a tracked identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIdentityAdd(name, accountID, credential, color)
		},
	}
	add.Flags().StringVar(&name, "name", "", "display name")
	add.Flags().StringVar(&accountID, "account", "", "external account id")
	add.Flags().StringVar(&credential, "credential", "", "credential reference (token path)")
	add.Flags().StringVar(&color, "color", "#3b82f6", "display color")
	add.MarkFlagRequired("name")
	add.MarkFlagRequired("account")

	list := &cobra.Command{
		Use:   "list",
		Short: "List tracked identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIdentityList()
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the sync daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon()
		},
	}
	return cmd
}
