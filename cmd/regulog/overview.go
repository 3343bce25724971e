package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/regulogio/regulog/pkg/regulog"
)

var overviewCmd = &cobra.Command{
	Use:   "overview PATH...",
	Short: "List sources reachable from the given paths without matching",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runOverview,
}

func runOverview(cmd *cobra.Command, args []string) error {
	pathFilter, archiveExtensions, _, _, err := runConfig()
	if err != nil {
		return err
	}

	summaries, err := regulog.Overview(args, pathFilter, archiveExtensions, sourceConfig(args))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, s := range summaries {
		fmt.Fprintf(out, "%-9s %-40s members=%d earliest=%s latest=%s\n",
			s.Kind, s.Path, s.MemberCount, s.Earliest.Format("2006-01-02T15:04:05"), s.Latest.Format("2006-01-02T15:04:05"))
	}
	return nil
}
