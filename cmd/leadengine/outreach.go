package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func outreachCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "outreach", Short: "Deliver generated outreach for a lead"}
	cmd.AddCommand(outreachSendCmd("email", "Email the outreach copy to the owner"))
	cmd.AddCommand(outreachSendCmd("call", "Place a scripted call to the business"))
	return cmd
}

func outreachSendCmd(channel, short string) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   channel + " <lead-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			l, err := a.store.GetLead(ctx, args[0])
			if err != nil {
				return err
			}
			h, rec, err := a.handoff(dryRun)
			if err != nil {
				return err
			}
			if channel == "email" {
				l, err = h.SendEmail(ctx, l)
			} else {
				l, err = h.Call(ctx, l)
			}
			if rec != nil {
				for _, m := range rec.Emails {
					fmt.Printf("[dry run] email to %s\nSubject: %s\n\n%s\n", m.To, m.Subject, m.Body)
				}
				for _, c := range rec.Calls {
					fmt.Printf("[dry run] call %s\n%s\n", c.To, c.Script)
				}
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", l.Name, l.Status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print instead of delivering")
	return cmd
}
