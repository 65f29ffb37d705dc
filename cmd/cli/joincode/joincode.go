package joincode

import (
	"fmt"

	"github.com/korpimaa/nightexpress/internal/random"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "joincode",
	Title: "Join codes",
}

var count int

func init() {
	Generate.Flags().IntVarP(&count, "count", "n", 1, "number of codes to generate")
}

var Generate = &cobra.Command{
	Use:     "join-code",
	GroupID: "joincode",
	Short:   "Generate join codes",
	Long:    "Generates join codes from the unambiguous session-code alphabet. Uniqueness against live sessions is checked at creation, not here.",
	RunE: func(_ *cobra.Command, _ []string) error {
		for i := 0; i < count; i++ {
			code, err := random.JoinCode()
			if err != nil {
				return fmt.Errorf("generate join code: %w", err)
			}
			fmt.Println(code)
		}
		return nil
	},
}
