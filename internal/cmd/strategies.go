package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/eprimestat/internal/strategy"
)

// NewStrategiesCommand creates the strategies command
func NewStrategiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the available analysis strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			for _, name := range strategy.Names() {
				s, err := strategy.Lookup(name)
				if err != nil {
					return err
				}
				rows = append(rows, []string{name, strings.Join(s.ResultKeys(), ", ")})
			}
			return writeTable(cmd.OutOrStdout(), []string{"strategy", "result keys"}, rows)
		},
	}
}
