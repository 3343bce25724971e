package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/regulogio/regulog/pkg/eventtype"
	"github.com/regulogio/regulog/pkg/regulog"
)

var showEventTypesCmd = &cobra.Command{
	Use:   "show-event-types",
	Short: "List the event types resolved from --event-types or the run configuration",
	Args:  cobra.NoArgs,
	RunE:  runShowEventTypes,
}

func init() {
	addEventTypeFilesFlag(showEventTypesCmd)
}

func runShowEventTypes(cmd *cobra.Command, args []string) error {
	registry, err := loadRegistry()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, et := range registry.List() {
		fmt.Fprintf(out, "%-20s filename=%-20q text=%-30q timestamp=%-30q multiline=%d\n",
			et.Name, et.RexFilename, et.RexText, et.RexTimestamp, et.MultilineCount)
	}
	return nil
}

var (
	saveName          string
	saveDescription   string
	saveRexFilename   string
	saveRexText       string
	saveRexTimestamp  string
	saveMultiline     int
	saveCaseSensitive bool
	saveOutputFile    string
)

var saveEventTypeCmd = &cobra.Command{
	Use:   "save-event-type",
	Short: "Write a single event type definition into an event-type XML file",
	Args:  cobra.NoArgs,
	RunE:  runSaveEventType,
}

func init() {
	saveEventTypeCmd.Flags().StringVar(&saveName, "name", "", "event type name (required)")
	saveEventTypeCmd.Flags().StringVar(&saveDescription, "description", "", "event type description")
	saveEventTypeCmd.Flags().StringVar(&saveRexFilename, "rex-filename", "", "filename regex (required)")
	saveEventTypeCmd.Flags().StringVar(&saveRexText, "rex-text", "", "text regex (required)")
	saveEventTypeCmd.Flags().StringVar(&saveRexTimestamp, "rex-timestamp", "", "timestamp regex (required)")
	saveEventTypeCmd.Flags().IntVar(&saveMultiline, "multiline-count", 1, "number of lines to concatenate before matching the text regex")
	saveEventTypeCmd.Flags().BoolVar(&saveCaseSensitive, "case-sensitive", false, "case-sensitive text matching")
	saveEventTypeCmd.Flags().StringVar(&saveOutputFile, "file", "", "event-type XML file to create or merge into (required)")
	for _, name := range []string{"name", "rex-filename", "rex-text", "rex-timestamp", "file"} {
		_ = saveEventTypeCmd.MarkFlagRequired(name)
	}
}

func runSaveEventType(cmd *cobra.Command, args []string) error {
	et, err := eventtype.New(eventtype.Params{
		Name:           saveName,
		Description:    saveDescription,
		RexFilename:    saveRexFilename,
		RexText:        saveRexText,
		RexTimestamp:   saveRexTimestamp,
		MultilineCount: saveMultiline,
		CaseSensitive:  saveCaseSensitive,
	})
	if err != nil {
		return err
	}
	return regulog.SaveEventType(saveOutputFile, et)
}
