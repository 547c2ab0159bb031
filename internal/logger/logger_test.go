package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize_WithoutSentry(t *testing.T) {
	require.NoError(t, Initialize(Config{Debug: true}))
	assert.NotNil(t, Default())
	assert.Same(t, Default(), FromContext(context.Background()))
}

func TestError_WritesMessageAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Replace(zap.New(core))
	t.Cleanup(func() { Replace(zap.NewNop()) })

	Error(errors.New("ledger down"), zap.Int64("nftId", 7))
	Error(nil)
	InfoCtx(context.Background(), "settled")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "ledger down", entries[0].Message)
	assert.Equal(t, int64(7), entries[0].ContextMap()["nftId"])
	assert.Equal(t, "error occurred", entries[1].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[2].Level)
}
