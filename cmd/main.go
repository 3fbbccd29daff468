package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:          "growth-dashboard",
		Short:        "Fetch subscription, traffic and ad spend metrics into the dashboard snapshot",
		RunE:         run,
		SilenceUsage: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the growth-dashboard version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	cfgFile    string
	outputPath string
	dryRun     bool
	version    string
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to configuration file (optional)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "snapshot path, overrides output.path")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the snapshot to stdout instead of writing and publishing it")
	rootCmd.AddCommand(versionCmd)
	if err := rootCmd.Execute(); err != nil {
		slog.Default().Error("run failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
