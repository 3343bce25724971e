package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/regulogio/regulog/internal/applog"
	"github.com/regulogio/regulog/pkg/event"
	"github.com/regulogio/regulog/pkg/matcher"
	"github.com/regulogio/regulog/pkg/regulog"
)

var (
	searchChronological bool
	searchExportDir     string
)

var searchCmd = &cobra.Command{
	Use:   "search PATH...",
	Short: "Scan sources and print/export matched events",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	addEventTypeFilesFlag(searchCmd)
	searchCmd.Flags().BoolVar(&searchChronological, "chronological", false, "sort matched events globally by timestamp instead of streaming match order")
	searchCmd.Flags().StringVar(&searchExportDir, "export-dir", "", "write per-event-type XML/CSV files to this directory")
}

func runSearch(cmd *cobra.Command, args []string) error {
	registry, err := loadRegistry()
	if err != nil {
		return err
	}
	pathFilter, archiveExtensions, outputDir, cfgChronological, err := runConfig()
	if err != nil {
		return err
	}
	if searchExportDir != "" {
		outputDir = searchExportDir
	}
	chronological := searchChronological || cfgChronological

	out := cmd.OutOrStdout()
	initColorState(colorFlag, os.Stdout)

	res, err := regulog.Search(args, registry, regulog.Options{
		PathFilter:        pathFilter,
		ArchiveExtensions: archiveExtensions,
		Chronological:     chronological,
		OutputDirectory:   outputDir,
		Source:            sourceConfig(args),
		OnEvent:           func(ev *event.Event) { printEvent(out, ev) },
		OnHookError: func(name string, err error) {
			applog.Warn("hook error in %s: %v", name, err)
		},
		OnSourceError: func(path string, err error) {
			applog.Warn("skipping %s: %v", path, err)
		},
		OnAdvancement: func(stats matcher.Stats, currentPath string) {
			applog.Info("%d lines processed, %d events found, current file %s", stats.ProcessedLines, stats.FoundEvents, currentPath)
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "processed %d lines, found %d events\n", res.Stats.ProcessedLines, res.Stats.FoundEvents)

	if outputDir != "" {
		if err := regulog.Export(res, outputDir); err != nil {
			return err
		}
	}
	return nil
}

func printEvent(out io.Writer, ev *event.Event) {
	ts, _ := ev.GetField("_timestamp")
	flat, _ := ev.GetField("_flat")
	fmt.Fprintf(out, "%s %s %s\n", color.CyanString(ts), color.YellowString(ev.TypeName), flat)
}
