package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <queue-id>",
	Short: "Cancel a phase that has not started running",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		removed, err := svc.Dequeue(context.Background(), args[0])
		if err != nil {
			fatal("%v", err)
		}
		if !removed {
			fatal("could not cancel %s: phase is running, finished, or does not exist", args[0])
		}
		fmt.Printf("Canceled %s\n", args[0])
	},
}

var attachCmd = &cobra.Command{
	Use:   "attach <queue-id> <issue-number>",
	Short: "Attach the external ticket number to a phase",
	Long: `Attach the external ticket number to a phase once ticket creation has
completed. Enqueue can happen before the ticket exists; completion
reports are keyed by this number.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		var issueNumber int
		if _, err := fmt.Sscanf(args[1], "%d", &issueNumber); err != nil || issueNumber <= 0 {
			fatal("invalid issue number: %s", args[1])
		}
		if err := svc.AttachIssueNumber(context.Background(), args[0], issueNumber); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("Attached issue #%d to %s\n", issueNumber, args[0])
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <issue-number>",
	Short: "Report an issue's execution result into the queue",
	Long: `Report that an issue's execution finished. Success promotes the next
phase in the chain to ready; failure blocks every downstream phase.
An issue number with no matching queue row is a no-op.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var issueNumber int
		if _, err := fmt.Sscanf(args[0], "%d", &issueNumber); err != nil || issueNumber <= 0 {
			fatal("invalid issue number: %s", args[0])
		}
		failed, _ := cmd.Flags().GetBool("failed")
		errMsg, _ := cmd.Flags().GetString("error")

		result, err := svc.ReportIssueResult(context.Background(), issueNumber, !failed, errMsg)
		if err != nil {
			fatal("%v", err)
		}
		if result.Phase == nil {
			fmt.Printf("Issue #%d is not queue-managed, nothing to do\n", issueNumber)
			return
		}
		if failed {
			fmt.Printf("Phase %d marked failed; blocked %d downstream phase(s)\n",
				result.Phase.PhaseNumber, len(result.Affected))
			return
		}
		fmt.Printf("Phase %d marked completed; promoted %d phase(s) to ready\n",
			result.Phase.PhaseNumber, len(result.Affected))
	},
}

func init() {
	reportCmd.Flags().Bool("failed", false, "Report failure instead of success")
	reportCmd.Flags().String("error", "", "Error message for a failed execution")
}
