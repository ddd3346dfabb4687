package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"creator-missions/pkg/task"
	"creator-missions/pkg/taskname"
	"creator-missions/services/deadletter"
)

var (
	listQueue string
	listLimit int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show archived tasks and stored failure records",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listQueue, "queue", "", "lane to inspect (default: every lane)")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "maximum entries per lane")
}

func runList(cmd *cobra.Command, args []string) error {
	queues := taskname.Lanes()
	if listQueue != "" {
		queues = []string{listQueue}
	}

	return withApp(cmd.Context(), func(ctx context.Context, insp *task.Inspector, svc *deadletter.Service) error {
		out := cmd.OutOrStdout()
		for _, queue := range queues {
			tasks, err := insp.ListDeadLetters(queue, listLimit)
			if err != nil {
				return fmt.Errorf("list archived tasks of %s: %w", queue, err)
			}
			fmt.Fprintf(out, "== %s: %d archived\n", queue, len(tasks))
			if err := renderArchived(out, tasks); err != nil {
				return err
			}
		}

		jobs, err := svc.List(ctx, listQueue, listLimit)
		if err != nil {
			return fmt.Errorf("list failure records: %w", err)
		}
		fmt.Fprintf(out, "== failure records: %d\n", len(jobs))
		return renderFailedJobs(out, jobs)
	})
}

func renderArchived(w io.Writer, tasks []*asynq.TaskInfo) error {
	if len(tasks) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tRETRIED\tFAILED AT\tERROR")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\t%s\n",
			t.ID, t.Type, t.Retried, t.MaxRetry, formatTime(t.LastFailedAt), t.LastErr)
	}
	return tw.Flush()
}

func renderFailedJobs(w io.Writer, jobs []*deadletter.FailedJob) error {
	if len(jobs) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUEUE\tTASK ID\tTYPE\tRETRIED\tFAILED AT\tERROR")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			j.Queue, j.TaskID, j.TaskType, j.Retried, j.MaxRetry, formatTime(j.FailedAt), j.ErrorMsg)
	}
	return tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
