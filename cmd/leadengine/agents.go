package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	agentdir "leadengine/internal/agent"
)

func agentsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "agents", Short: "Manage agent profiles"}
	cmd.AddCommand(agentsListCmd(), agentsShowCmd(), agentsValidateCmd(), agentsSaveCmd())
	return cmd
}

func agentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the active agent profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			profiles := a.dir.All()
			if jsonOut {
				return printJSON(profiles)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Name", "Role", "Creativity", "Chain"})
			for _, p := range profiles {
				var links []string
				for _, l := range p.Chain {
					links = append(links, l.Trigger+" -> "+l.NextAgentID)
				}
				tw.AppendRow(table.Row{p.ID, p.Name, p.Role, p.Behavior.Creativity, strings.Join(links, "\n")})
			}
			tw.Render()
			return nil
		},
	}
}

func agentsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <agent-id>",
		Short: "Print the compiled instruction text of an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			p, err := a.agentByID(args[0])
			if err != nil {
				return err
			}
			fmt.Print(agentdir.Compile(p))
			return nil
		},
	}
}

func agentsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Report unknown targets, self links and chain cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			issues := a.dir.Validate()
			lines := make([]string, 0, len(issues))
			for _, is := range issues {
				lines = append(lines, is.String())
			}
			if jsonOut {
				if err := printJSON(lines); err != nil {
					return err
				}
			} else {
				for _, line := range lines {
					fmt.Println(line)
				}
			}
			if len(issues) > 0 {
				return fmt.Errorf("%d chain issue(s)", len(issues))
			}
			if !jsonOut {
				fmt.Printf("%d agents, no chain issues\n", len(a.dir.All()))
			}
			return nil
		},
	}
}

func agentsSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Copy the active profiles (from --agents or built-ins) into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			for _, p := range a.dir.All() {
				if err := a.store.UpsertAgentProfile(cmd.Context(), p); err != nil {
					return err
				}
			}
			fmt.Printf("saved %d agent profiles\n", len(a.dir.All()))
			return nil
		},
	}
}
