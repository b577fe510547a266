package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"leadengine/internal/leadstatus"
)

func leadsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "leads", Short: "Inspect and edit saved leads"}
	cmd.AddCommand(leadsListCmd(), leadsShowCmd(), leadsStatusCmd(), leadsDeleteCmd())
	return cmd
}

func leadsListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			leads, err := a.store.GetLeads(cmd.Context())
			if err != nil {
				return err
			}
			if status != "" {
				want, err := leadstatus.Parse(status)
				if err != nil {
					return err
				}
				kept := leads[:0]
				for _, l := range leads {
					if l.Status == want {
						kept = append(kept, l)
					}
				}
				leads = kept
			}
			if jsonOut {
				return printJSON(leads)
			}
			renderLeads(leads)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only leads in this status")
	return cmd
}

func leadsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <lead-id>",
		Short: "Print one lead as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			l, err := a.store.GetLead(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(l)
		},
	}
}

func leadsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <lead-id> <status>",
		Short: "Set a lead's status by hand (reset, replied, closed_won, ...)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			target, err := leadstatus.Parse(args[1])
			if err != nil {
				return err
			}
			l, err := a.store.GetLead(ctx, args[0])
			if err != nil {
				return err
			}
			if l.Status, err = leadstatus.SetByUser(l.Status, target); err != nil {
				return err
			}
			if err := a.store.UpsertLead(ctx, l); err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", l.Name, l.Status)
			return nil
		},
	}
}

func leadsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <lead-id>",
		Short: "Delete a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			return a.store.DeleteLead(cmd.Context(), args[0])
		},
	}
}
