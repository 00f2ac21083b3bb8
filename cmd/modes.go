package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/modebot/internal/modes"
)

func modesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List the available conversation modes",
		Run: func(cmd *cobra.Command, args []string) {
			for _, m := range modes.Default().List() {
				marker := " "
				if m.Name == modes.DefaultMode {
					marker = "*"
				}
				fmt.Printf("%s %-14s %s\n", marker, m.Name, m.Intro)
			}
		},
	}
}
