package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/FormulaInfer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FormulaInfer/internal/testutil"
)

func TestMockLogger(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	messages := logger.GetMessages()
	assert.Len(t, messages, 1)
	assert.Equal(t, "info", messages[0].Level)
	assert.Equal(t, "test info", messages[0].Message)

	logger.Clear()
	assert.Len(t, logger.GetMessages(), 0)

	logger.Error("test error")
	assert.True(t, logger.HasMessage("error", "test error"))
	assert.False(t, logger.HasMessage("info", "test info"))
	assert.Equal(t, 1, logger.CountLevel("error"))
}

func TestMockLogger_ChildrenShareRecord(t *testing.T) {
	logger := testutil.NewMockLogger()

	child := logger.Named("inference").Named("solver").With(logging.String("job_id", "j-7"))
	child.Warn("slow solve", logging.Int("leaves", 10))

	msg, ok := logger.Find("warn", "slow solve")
	require.True(t, ok)
	assert.Equal(t, "inference.solver", msg.Logger)

	v, ok := msg.Field("job_id")
	require.True(t, ok)
	assert.Equal(t, "j-7", v)

	v, ok = msg.Field("leaves")
	require.True(t, ok)
	assert.Equal(t, 10, v)

	_, ok = msg.Field("missing")
	assert.False(t, ok)
}
