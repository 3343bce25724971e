package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/regulogio/regulog/pkg/extractor"
	"github.com/regulogio/regulog/pkg/regulog"
)

var (
	extractOutputDir      string
	extractKeepSourceDirs bool
	extractJoinLog4j      bool
	extractReduceDirs     bool
)

var extractCmd = &cobra.Command{
	Use:   "extract PATH...",
	Short: "Copy matched source files into a reduced output tree",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractOutputDir, "output-dir", "", "destination directory (required)")
	extractCmd.Flags().BoolVar(&extractKeepSourceDirs, "keep-source-dirs", false, "nest output under a per-source subdirectory")
	extractCmd.Flags().BoolVar(&extractJoinLog4j, "join-log4j", false, "merge numbered log4j rotations (X, X.1, X.2, ...) into one file")
	extractCmd.Flags().BoolVar(&extractReduceDirs, "reduce-dirs", false, "strip common leading directories from destination paths")
	_ = extractCmd.MarkFlagRequired("output-dir")
}

func runExtract(cmd *cobra.Command, args []string) error {
	pathFilter, archiveExtensions, _, _, err := runConfig()
	if err != nil {
		return err
	}

	entries, err := regulog.Extract(args, pathFilter, archiveExtensions, sourceConfig(args), extractor.Options{
		OutputDir:      extractOutputDir,
		KeepSourceDirs: extractKeepSourceDirs,
		JoinLog4j:      extractJoinLog4j,
		ReduceDirs:     extractReduceDirs,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "extracted %d files to %s\n", len(entries), extractOutputDir)
	return nil
}
