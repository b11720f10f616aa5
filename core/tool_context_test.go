package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolContext_Accessors(t *testing.T) {
	rc, _, _ := newRunContextForTest()
	tc := NewToolContext(rc, "call-1")

	assert.Equal(t, context.Background(), tc.Context())
	assert.Equal(t, "sess-x", tc.SessionID())
	assert.Equal(t, "run-x", tc.RunID())
	assert.Equal(t, "call-1", tc.FunctionCallID())
	assert.Equal(t, "Analyst", tc.AgentName())
	assert.NotNil(t, tc.Logger())
}

type recordedLog struct {
	msg  string
	args []any
}

type recordingLogger struct{ logs []recordedLog }

func (r *recordingLogger) add(msg string, args []any) {
	r.logs = append(r.logs, recordedLog{msg: msg, args: args})
}

func (r *recordingLogger) Debug(msg string, args ...any) { r.add(msg, args) }
func (r *recordingLogger) Info(msg string, args ...any)  { r.add(msg, args) }
func (r *recordingLogger) Warn(msg string, args ...any)  { r.add(msg, args) }
func (r *recordingLogger) Error(msg string, args ...any) { r.add(msg, args) }

func TestScopedLogging(t *testing.T) {
	logger := &recordingLogger{}
	rc := NewRunContext(context.Background(), "t1", "r1", AgentInfo{Name: "Analyst"}, Content{}, 0, nil, nil, nil, nil, logger)
	tc := NewToolContext(rc, "call-7")

	rc.LogInfo("agent.run.start", "agent", "Analyst")
	tc.LogError("tool.failed", "tool", "get_stock_price")

	assert.Equal(t, []recordedLog{
		{msg: "agent.run.start", args: []any{"session_id", "t1", "run_id", "r1", "agent", "Analyst"}},
		{msg: "tool.failed", args: []any{"session_id", "t1", "run_id", "r1", "function_call_id", "call-7", "tool", "get_stock_price"}},
	}, logger.logs)
	assert.Same(t, logger, tc.Logger())
}
