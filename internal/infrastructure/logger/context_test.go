package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func TestWithContext_FromContext(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		l, _ := newObservedLogger()
		ctx := WithContext(context.Background(), l)

		assert.Same(t, l, FromContext(ctx))
	})

	t.Run("missing logger yields nop", func(t *testing.T) {
		l := FromContext(context.Background())
		require.NotNil(t, l)
		l.Info("must not panic")
	})
}

func TestWithRequestID(t *testing.T) {
	l, logs := newObservedLogger()

	ctx, enriched := WithRequestID(context.Background(), l, "req-123")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Same(t, enriched, FromContext(ctx))

	enriched.Info("ping")
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
}

func TestWithRunID(t *testing.T) {
	l, logs := newObservedLogger()

	ctx, enriched := WithRunID(context.Background(), l, "run-42")

	assert.Equal(t, "run-42", GetRunID(ctx))

	enriched.Info("ping")
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "run-42", entries[0].ContextMap()["run_id"])
}

func TestGetRequestID_Missing(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestGetRunID_Missing(t *testing.T) {
	assert.Empty(t, GetRunID(context.Background()))
}

func TestL(t *testing.T) {
	t.Run("enriches with request and run identifiers", func(t *testing.T) {
		l, logs := newObservedLogger()

		ctx := WithContext(context.Background(), l)
		ctx = context.WithValue(ctx, RequestIDKey, "req-9")
		ctx = context.WithValue(ctx, RunIDKey, "run-7")

		L(ctx).Info("ping")

		entries := logs.All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-9", fields["request_id"])
		assert.Equal(t, "run-7", fields["run_id"])
	})

	t.Run("skips absent identifiers", func(t *testing.T) {
		l, logs := newObservedLogger()

		L(WithContext(context.Background(), l)).Info("ping")

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Empty(t, entries[0].ContextMap())
	})

	t.Run("bare context yields nop", func(t *testing.T) {
		L(context.Background()).Info("must not panic")
	})
}
