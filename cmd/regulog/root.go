package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/regulogio/regulog/internal/applog"
)

var (
	loggingPath   string
	loggingLevel  string
	loggingStdout bool
	configPath    string
	sourceKind    string
	colorFlag     *bool
)

var rootCmd = &cobra.Command{
	Use:           "regulog",
	Short:         "Extract structured events from heterogeneous log sources",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return applog.Configure(applog.Options{Path: loggingPath, Level: loggingLevel, Stdout: loggingStdout})
	},
}

// Execute runs the root command, exiting non-zero on any returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "run configuration file")
	rootCmd.PersistentFlags().StringVar(&loggingPath, "logging-path", "", "file to write application logs to")
	rootCmd.PersistentFlags().StringVar(&loggingLevel, "logging-level", "INFO", "logging level: TRACE DEBUG INFO WARN ERROR")
	rootCmd.PersistentFlags().BoolVar(&loggingStdout, "logging-stdout", false, "also write application logs to stdout")
	rootCmd.PersistentFlags().StringVar(&sourceKind, "source-kind", "local", "source backend: local, cloudwatch, k8s, docker, ssh")

	_ = rootCmd.RegisterFlagCompletionFunc("logging-level", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(showEventTypesCmd)
	rootCmd.AddCommand(saveEventTypeCmd)
	rootCmd.AddCommand(versionCmd)
}
