package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"orgcal/internal/config"
	"orgcal/internal/ics"
)

var mergeFlags struct {
	name        string
	description string
	output      string
}

var mergeCmd = &cobra.Command{
	Use:   "merge -o OUTPUT FILE...",
	Short: "Merge several .ics files into one calendar",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMerge,
}

func init() {
	f := mergeCmd.Flags()
	f.StringVarP(&mergeFlags.name, "calendar-name", "n", "Output", "Calendar name")
	f.StringVarP(&mergeFlags.description, "calendar-description", "d", "Description", "Calendar description")
	f.StringVarP(&mergeFlags.output, "output", "o", "", "Output file (required)")
	_ = mergeCmd.MarkFlagRequired("output")
}

func runMerge(cmd *cobra.Command, args []string) error {
	data, err := ics.MergeFiles(mergeFlags.name, mergeFlags.description, args)
	if err != nil {
		return err
	}
	if err := config.WriteFileAtomic(mergeFlags.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", mergeFlags.output, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d file(s) into %s\n", len(args), mergeFlags.output)
	return nil
}
