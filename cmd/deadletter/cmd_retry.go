package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"creator-missions/pkg/task"
	"creator-missions/pkg/taskname"
	"creator-missions/services/deadletter"
)

var (
	retryQueue  string
	retryTaskID string
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Move archived tasks back to their lane",
	Long: `Move archived tasks back to their lane.

With --id only that task is replayed, otherwise every archived task of the lane.
Replays are safe: each stage skips claims that already moved past it.`,
	RunE: runRetry,
}

func init() {
	retryCmd.Flags().StringVar(&retryQueue, "queue", "", "lane to replay")
	retryCmd.Flags().StringVar(&retryTaskID, "id", "", "single task id to replay")
	_ = retryCmd.MarkFlagRequired("queue")
}

func runRetry(cmd *cobra.Command, args []string) error {
	if !knownLane(retryQueue) {
		return fmt.Errorf("unknown lane %q, expected one of %v", retryQueue, taskname.Lanes())
	}

	return withApp(cmd.Context(), func(ctx context.Context, insp *task.Inspector, _ *deadletter.Service) error {
		n, err := insp.Retry(retryQueue, retryTaskID)
		if err != nil {
			return fmt.Errorf("retry %s: %w", retryQueue, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d task(s) moved back to %s\n", n, retryQueue)
		return nil
	})
}

func knownLane(queue string) bool {
	for _, lane := range taskname.Lanes() {
		if lane == queue {
			return true
		}
	}
	return false
}
