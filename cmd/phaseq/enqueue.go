package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adwforge/phaseq/internal/config"
	"github.com/adwforge/phaseq/internal/queue"
	"github.com/adwforge/phaseq/internal/types"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue [title]",
	Short: "Queue one phase of work",
	Long: `Queue one phase of work. Phase 1 (or any phase without --depends-on)
starts ready; later phases start queued and become ready when their
predecessor completes. Use --parent 0 (the default) for fire-and-forget
submissions with no parent tracking ticket.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		parent, _ := cmd.Flags().GetInt("parent")
		phaseNumber, _ := cmd.Flags().GetInt("phase")
		dependsOn, _ := cmd.Flags().GetInt("depends-on")
		priority, _ := cmd.Flags().GetInt("priority")
		workflow, _ := cmd.Flags().GetString("workflow")
		executor, _ := cmd.Flags().GetString("executor")
		body, _ := cmd.Flags().GetString("body")
		docRefs, _ := cmd.Flags().GetStringSlice("doc-refs")

		req := queue.EnqueueRequest{
			ParentIssue: parent,
			PhaseNumber: phaseNumber,
			Priority:    priority,
			Data: types.PhaseData{
				WorkflowType: workflow,
				ExecutorID:   executor,
				Title:        args[0],
				Body:         body,
				DocRefs:      docRefs,
			},
		}
		if cmd.Flags().Changed("depends-on") {
			req.DependsOnPhase = &dependsOn
		}

		queueID, err := svc.Enqueue(context.Background(), req)
		if err != nil {
			fatal("%v", err)
		}

		phase, err := svc.Get(context.Background(), queueID)
		if err != nil {
			fatal("%v", err)
		}

		if config.GetBool("json") {
			_ = json.NewEncoder(os.Stdout).Encode(phase)
			return
		}
		fmt.Printf("Queued phase %d (%s) as %s [%s]\n",
			phase.PhaseNumber, phase.Data.Title, phase.QueueID, phase.Status)
	},
}

func init() {
	enqueueCmd.Flags().Int("parent", types.NoParent, "Parent issue number (0 = no parent, fire-and-forget)")
	enqueueCmd.Flags().Int("phase", 1, "Phase number within the parent (1-based)")
	enqueueCmd.Flags().Int("depends-on", 0, "Phase number this phase depends on")
	enqueueCmd.Flags().Int("priority", 0, fmt.Sprintf("Priority %d-%d, lower runs first (default %d)",
		types.PriorityUrgent, types.PriorityBackground, types.PriorityDefault))
	enqueueCmd.Flags().String("workflow", "", "Workflow type identifier (required)")
	enqueueCmd.Flags().String("executor", "", "Executor identifier (required)")
	enqueueCmd.Flags().String("body", "", "Free-text phase body")
	enqueueCmd.Flags().StringSlice("doc-refs", nil, "External document references")
	_ = enqueueCmd.MarkFlagRequired("workflow")
	_ = enqueueCmd.MarkFlagRequired("executor")
}
