package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmit_NilSinkIsNoOp(t *testing.T) {
	assert.NotPanics(t, func() {
		Emit(nil, AcquireStarted, map[string]any{"version": "8.0"})
	})
}

func TestMemorySink_RecordsInOrder(t *testing.T) {
	sink := NewMemorySink()
	Emit(sink, AcquireStarted, map[string]any{"version": "8.0"})
	Emit(sink, AcquireCompleted, map[string]any{"version": "8.0"})

	records := sink.Records()
	assert.Len(t, records, 2)
	assert.Equal(t, AcquireStarted, records[0].Kind)
	assert.Equal(t, AcquireCompleted, records[1].Kind)
}

func TestMemorySink_HasKind(t *testing.T) {
	sink := NewMemorySink()
	assert.False(t, sink.HasKind(PreinstallDetected))
	Emit(sink, PreinstallDetected, nil)
	assert.True(t, sink.HasKind(PreinstallDetected))
}

func TestSlogSink_DoesNotPanicOnAnyKind(t *testing.T) {
	sink := NewSlogSink(nil)
	assert.NotPanics(t, func() {
		Emit(sink, WebRequestError, map[string]any{"url": "https://example.test"})
		Emit(sink, AcquireFailed, map[string]any{"kind": "InstallFailed"})
		Emit(sink, ConditionsValidated, map[string]any{"satisfied": true})
	})
}
