package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var agentsJSON bool

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the available agents and their tools",
	Args:  cobra.NoArgs,
	RunE:  runAgents,
}

func init() {
	agentsCmd.Flags().BoolVar(&agentsJSON, "json", false, "print the discovery payload as JSON")
	rootCmd.AddCommand(agentsCmd)
}

func runAgents(cmd *cobra.Command, _ []string) error {
	ctx, cancel := setupContext()
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	infos := a.Agents.Infos()
	if agentsJSON {
		return printJSON(cmd.OutOrStdout(), map[string]any{"agents": infos})
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tNAME\tTOOLS")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Type, info.Name, strings.Join(info.AvailableTools, ", "))
	}
	return tw.Flush()
}
