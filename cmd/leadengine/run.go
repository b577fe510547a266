package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"leadengine/internal/leadstatus"
	"leadengine/internal/pipeline"
	"leadengine/internal/types/agent"
	"leadengine/internal/types/lead"
)

func runCmd() *cobra.Command {
	var agentID, stage string
	var all bool
	cmd := &cobra.Command{
		Use:   "run [lead-id]",
		Short: "Run the pipeline (or one stage) for a lead, or every scouted lead with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("give a lead id or --all")
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, appOptions{needLLM: true})
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.agentByID(agentID)
			if err != nil {
				return err
			}
			if all {
				return runAll(ctx, a, p)
			}

			l, err := a.store.GetLead(ctx, args[0])
			if err != nil {
				return err
			}
			var results []pipeline.StageResult
			var runErr error
			if stage != "" {
				st, err := pipeline.ParseStage(stage)
				if err != nil {
					return err
				}
				var res pipeline.StageResult
				l, res, runErr = a.orch.RunStage(ctx, l, st, p)
				results = append(results, res)
			} else {
				l, results, runErr = a.orch.RunFullPipeline(ctx, l, p)
			}
			if jsonOut {
				if err := printJSON(map[string]any{"lead": l, "results": results}); err != nil {
					return err
				}
			} else {
				renderResults(l.Name, results)
				fmt.Printf("status: %s\n", l.Status)
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "researcher", "starting agent id (empty for none)")
	cmd.Flags().StringVar(&stage, "stage", "", "run a single stage: research, competitors, strategy, build, outreach, assets")
	cmd.Flags().BoolVar(&all, "all", false, "run every lead still in SCOUTED")
	return cmd
}

func runAll(ctx context.Context, a *app, p agent.Profile) error {
	leads, err := a.store.GetLeads(ctx)
	if err != nil {
		return err
	}
	var todo []lead.Lead
	for _, l := range leads {
		if l.Status == leadstatus.Scouted {
			todo = append(todo, l)
		}
	}
	out, err := a.orch.RunBatch(ctx, todo, p)
	if jsonOut {
		if perr := printJSON(out); perr != nil {
			return perr
		}
		return err
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Lead", "Status", "Stages", "Error"})
	failed := 0
	for _, r := range out {
		msg := ""
		if r.Err != nil {
			msg = r.Err.Error()
			failed++
		}
		tw.AppendRow(table.Row{r.Lead.Name, r.Lead.Status, len(r.Results), msg})
	}
	tw.Render()
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d leads failed", failed, len(out))
	}
	return nil
}

func renderResults(name string, results []pipeline.StageResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle(name)
	tw.AppendHeader(table.Row{"Stage", "Agent", "Result", "Elapsed"})
	for _, r := range results {
		outcome := "ok"
		switch {
		case r.Err != nil:
			outcome = "failed: " + r.Err.Error()
		case r.FellBack:
			outcome = "safe default"
		}
		tw.AppendRow(table.Row{r.Stage, r.Agent, outcome, r.Elapsed.Round(time.Millisecond)})
	}
	tw.Render()
}
