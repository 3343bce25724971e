package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/regulogio/regulog/internal/config"
	"github.com/regulogio/regulog/pkg/eventtype"
)

var eventTypeFilesFlag string

func addEventTypeFilesFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&eventTypeFilesFlag, "event-types", "", "semicolon-separated list of event-type XML files")
}

// loadRegistry resolves event-type XML files from the --event-types flag,
// falling back to the run configuration's event_type_files.
func loadRegistry() (*eventtype.Registry, error) {
	var files []string
	if eventTypeFilesFlag != "" {
		files = strings.Split(eventTypeFilesFlag, ";")
	} else {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		files = cfg.EventTypeFiles
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("regulog: no event-type files given (use --event-types or configure event_type_files)")
	}
	return eventtype.LoadRegistryXMLFiles(files)
}

func runConfig() (pathFilter, archiveExtensions, outputDir string, chronological bool, err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", "", "", false, err
	}
	return cfg.PathFilter, cfg.ArchiveExtensions, cfg.OutputDirectory, cfg.Chronological, nil
}
