package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceRecord(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	svc := NewService(store)

	require.NoError(t, svc.Record(ctx, Event{Actor: "u1", Subject: "assignment", SubjectID: "a1", Action: "status.compliant"}))
	require.NoError(t, svc.Record(ctx, Event{Actor: "u1", Subject: "exception", SubjectID: "e1", Action: "exception.approved"}))

	events, err := svc.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "exception.approved", events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestServiceMirrorNeverBlocks(t *testing.T) {
	ctx := context.Background()
	mirror := make(chan Event, 1)
	svc := NewService(NewInMemoryStore(), WithMirror(mirror))

	require.NoError(t, svc.Record(ctx, Event{SubjectID: "a1", Action: "one"}))
	// The channel is full now; the second record must still land in the store.
	require.NoError(t, svc.Record(ctx, Event{SubjectID: "a2", Action: "two"}))

	events, err := svc.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	mirrored := <-mirror
	assert.Equal(t, "one", mirrored.Action)
}

func TestWorkerDrainsMirror(t *testing.T) {
	inbox := make(chan Event, 4)
	sink := NewInMemoryStore()
	worker := NewWorker(sink, inbox)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	inbox <- Event{SubjectID: "a1", Action: "status.compliant"}
	inbox <- Event{SubjectID: "e1", Action: "exception.expired"}

	require.Eventually(t, func() bool {
		events, err := sink.ListRecent(context.Background(), 0)
		return err == nil && len(events) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
