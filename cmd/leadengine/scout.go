package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	agentdir "leadengine/internal/agent"
	"leadengine/internal/scout"
	"leadengine/internal/types/lead"
)

func scoutCmd() *cobra.Command {
	var q scout.Query
	var agentID string
	cmd := &cobra.Command{
		Use:   "scout",
		Short: "Find businesses in a niche and location and save them as leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			if q.Niche == "" || q.Location == "" {
				return fmt.Errorf("--niche and --location are required")
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{needLLM: true})
			if err != nil {
				return err
			}
			defer a.Close()

			existing, err := a.store.GetLeads(ctx)
			if err != nil {
				return err
			}
			for _, l := range existing {
				q.Exclude = append(q.Exclude, l.Name)
			}
			p, err := a.agentByID(agentID)
			if err != nil {
				return err
			}
			if p.ID != "" {
				q.System = agentdir.Compile(p)
			}

			var found []lead.Lead
			for l, err := range a.scout.Leads(ctx, q) {
				if err != nil {
					if len(found) == 0 {
						return err
					}
					fmt.Fprintf(os.Stderr, "scout stopped early: %v\n", err)
					break
				}
				if err := a.store.UpsertLead(ctx, l); err != nil {
					return fmt.Errorf("save %s: %w", l.Name, err)
				}
				found = append(found, l)
				if !jsonOut {
					fmt.Fprintf(os.Stderr, "found %s\n", l.Name)
				}
			}
			if jsonOut {
				return printJSON(found)
			}
			renderLeads(found)
			return nil
		},
	}
	cmd.Flags().StringVar(&q.Niche, "niche", "", "business niche, e.g. plumbers")
	cmd.Flags().StringVar(&q.Location, "location", "", "city or area")
	cmd.Flags().IntVar(&q.Limit, "limit", 10, "stop after this many leads (0 = no limit)")
	cmd.Flags().StringVar(&agentID, "agent", "scout", "scouting agent id (empty for none)")
	return cmd
}

func renderLeads(leads []lead.Lead) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Name", "Status", "Score", "Phone", "Email"})
	for _, l := range leads {
		score := ""
		if l.PropensityScore > 0 {
			score = fmt.Sprint(l.PropensityScore)
		}
		tw.AppendRow(table.Row{l.ID, l.Name, l.Status, score, l.Phone, firstOf(l.OwnerEmail, l.Email)})
	}
	tw.Render()
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
