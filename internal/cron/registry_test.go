package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresJobs(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "override-sync-backlog"}
	jobB := &stubJob{name: "outbox-retention"}
	require.True(t, registry.Register(jobA))
	require.True(t, registry.Register(jobB))
	require.False(t, registry.Register(nil))

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	require.Same(t, jobA, jobs[0])
	require.Same(t, jobB, jobs[1])

	jobs[0] = nil
	require.NotNil(t, registry.Jobs()[0], "internal slice leaked")
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	first := &stubJob{name: "outbox-retention"}
	registry := NewRegistry(first, &stubJob{name: "outbox-retention"}, nil)
	require.Equal(t, []string{"outbox-retention"}, registry.Names())
	require.Same(t, first, registry.Jobs()[0])
}
