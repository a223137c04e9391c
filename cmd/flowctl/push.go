package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newPushCmd(g *globals) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "push <file>",
		Short: "Create or update an automation from a flow file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := readAutomation(args[0])
			if err != nil {
				return err
			}
			if id != "" {
				a.ID = id
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			saved, err := c.SaveAutomation(cmd.Context(), a)
			if err != nil {
				return err
			}
			slog.Debug("pushed", "file", args[0], "automation", saved.ID)
			fmt.Fprintln(cmd.OutOrStdout(), saved.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "update this automation instead of the id in the file")
	return cmd
}
