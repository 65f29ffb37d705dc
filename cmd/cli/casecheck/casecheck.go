package casecheck

import (
	"fmt"
	"os"

	"github.com/korpimaa/nightexpress/internal/casefile"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "casecheck",
	Title: "Case bundles",
}

var Validate = &cobra.Command{
	Use:     "validate-case [file.json]",
	GroupID: "casecheck",
	Short:   "Validate a case bundle",
	Long:    "Parses a case bundle JSON file and reports its contents, or the embedded case when no file is given.",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var (
			bundle *casefile.Bundle
			err    error
		)
		if len(args) == 0 {
			bundle, err = casefile.MidnightExpress()
		} else {
			var data []byte
			if data, err = os.ReadFile(args[0]); err != nil {
				return fmt.Errorf("read case bundle: %w", err)
			}
			bundle, err = casefile.Parse(data)
		}
		if err != nil {
			return fmt.Errorf("parse case bundle: %w", err)
		}

		fmt.Printf("case %q is valid\n", bundle.ID)
		fmt.Printf("  suspects:   %d\n", len(bundle.Suspects))
		fmt.Printf("  clues:      %d\n", bundle.TotalClues())
		fmt.Printf("  vocabulary: %d\n", bundle.TotalVocabulary())
		fmt.Printf("  minigames:  %d\n", len(bundle.Minigames))
		return nil
	},
}
