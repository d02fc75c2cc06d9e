package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/adwforge/phaseq/internal/config"
	"github.com/adwforge/phaseq/internal/types"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued phases (optionally for one parent)",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		var phases []*types.Phase
		var err error
		if cmd.Flags().Changed("parent") {
			parent, _ := cmd.Flags().GetInt("parent")
			phases, err = svc.GetAllByParent(ctx, parent)
		} else {
			phases, err = svc.List(ctx)
		}
		if err != nil {
			fatal("%v", err)
		}

		if config.GetBool("json") {
			if phases == nil {
				phases = []*types.Phase{}
			}
			_ = json.NewEncoder(os.Stdout).Encode(phases)
			return
		}

		if len(phases) == 0 {
			fmt.Println("No phases queued.")
			return
		}
		for _, p := range phases {
			printPhase(p)
		}
	},
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the phase that would execute next",
	Run: func(cmd *cobra.Command, args []string) {
		phase, err := svc.GetNextReady(context.Background())
		if err != nil {
			fatal("%v", err)
		}
		if config.GetBool("json") {
			_ = json.NewEncoder(os.Stdout).Encode(phase)
			return
		}
		if phase == nil {
			fmt.Println("Nothing ready.")
			return
		}
		printPhase(phase)
	},
}

func printPhase(p *types.Phase) {
	parent := "-"
	if p.HasParent() {
		parent = fmt.Sprintf("#%d", p.ParentIssue)
	}
	issue := "unassigned"
	if p.IssueNumber != nil {
		issue = fmt.Sprintf("#%d", *p.IssueNumber)
	}
	fmt.Printf("%s  %-9s  parent %-6s phase %d  issue %-10s p%d  %s\n",
		p.QueueID[:8], statusColor(p.Status), parent, p.PhaseNumber, issue, p.Priority, p.Data.Title)
	if p.ErrorMessage != nil {
		fmt.Printf("          %s %s\n", color.RedString("error:"), *p.ErrorMessage)
	}
}

func statusColor(s types.Status) string {
	switch s {
	case types.StatusReady:
		return color.GreenString(string(s))
	case types.StatusRunning:
		return color.CyanString(string(s))
	case types.StatusCompleted:
		return color.HiGreenString(string(s))
	case types.StatusFailed, types.StatusBlocked:
		return color.RedString(string(s))
	default:
		return string(s)
	}
}

func init() {
	listCmd.Flags().Int("parent", 0, "Only show phases for this parent issue")
}
