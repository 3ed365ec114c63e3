//go:build integration

package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"coverguard/pkg/testutil/containers"
)

func TestRedisGuardAcquire(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	guard := NewRedisGuard(rc.Client, time.Minute)
	key := Key("expiration_reminder", "sub-1", time.Now())

	ok, err := guard.Acquire(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = guard.Acquire(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	other, err := guard.Acquire(ctx, Key("expiration_reminder", "sub-2", time.Now()))
	require.NoError(t, err)
	require.True(t, other)
}
