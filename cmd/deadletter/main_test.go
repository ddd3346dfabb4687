package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"creator-missions/services/deadletter"
)

func TestRenderArchived(t *testing.T) {
	var buf bytes.Buffer
	failedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, renderArchived(&buf, []*asynq.TaskInfo{
		{ID: "metrics-fetch:c1", Type: "metrics:fetch", Retried: 3, MaxRetry: 3, LastErr: "rate limited", LastFailedAt: failedAt},
	}))

	out := buf.String()
	require.Contains(t, out, "metrics-fetch:c1")
	require.Contains(t, out, "3/3")
	require.Contains(t, out, "2026-03-01T12:00:00Z")
	require.Contains(t, out, "rate limited")
}

func TestRenderFailedJobsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderFailedJobs(&buf, nil))
	require.Empty(t, buf.String())

	require.NoError(t, renderFailedJobs(&buf, []*deadletter.FailedJob{{Queue: "claim-finalize", TaskID: "t1", TaskType: "claim:finalize"}}))
	require.Contains(t, buf.String(), "claim-finalize")
	require.Contains(t, buf.String(), "-")
}

func TestKnownLane(t *testing.T) {
	require.True(t, knownLane("claim-validate"))
	require.False(t, knownLane("default"))
}

func TestCommandsRegistered(t *testing.T) {
	rootCmd.AddCommand(listCmd, retryCmd)
	names := []string{}
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	require.Contains(t, names, "list")
	require.Contains(t, names, "retry")
	require.NotNil(t, retryCmd.Flags().Lookup("queue"))
}
