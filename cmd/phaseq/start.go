package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start <queue-id>",
	Short: "Claim a ready phase for execution",
	Long: `Claim a ready phase for execution (ready → running). The transition is
compare-and-set: if another caller claimed the phase first, this fails
instead of double-starting it.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := svc.MarkRunning(context.Background(), args[0]); err != nil {
			fatal("%v", err)
		}
		fmt.Printf("Started %s\n", args[0])
	},
}
