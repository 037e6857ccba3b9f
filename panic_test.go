package hawk

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetPanicBridge clears the process-wide handler slot between tests.
func resetPanicBridge(t *testing.T) {
	t.Helper()
	panicHandlerInstalled.Store(false)
	currentPanicHandler.Store(nil)
	t.Cleanup(func() {
		panicHandlerInstalled.Store(false)
		currentPanicHandler.Store(nil)
	})
}

func TestRecover_CapturesPanicEvent(t *testing.T) {
	resetPanicBridge(t)

	stub, srv := newCollectorStub(t)
	c := newTestCatcher(t, srv.URL, nil)
	InstallPanicHandler(c)

	func() {
		defer Recover()
		panic("boom")
	}()

	require.True(t, c.Flush(time.Second))

	envelopes := stub.Envelopes()
	require.Len(t, envelopes, 1)
	payload := envelopes[0]["payload"].(map[string]any)
	assert.Equal(t, EventTypePanic, payload["type"])
	assert.True(t, strings.HasPrefix(payload["title"].(string), "panic: boom"),
		"got title %q", payload["title"])
	assert.NotEmpty(t, payload["backtrace"])
}

func TestRecover_ReturnsRecoveredValue(t *testing.T) {
	resetPanicBridge(t)

	var got any
	func() {
		defer func() { got = Recover() }()
		panic("value")
	}()
	assert.Equal(t, "value", got)

	got = "sentinel"
	func() {
		defer func() { got = Recover() }()
	}()
	assert.Nil(t, got, "no panic means nil")
}

func TestCatch_RePanics(t *testing.T) {
	resetPanicBridge(t)

	stub, srv := newCollectorStub(t)
	c := newTestCatcher(t, srv.URL, nil)
	InstallPanicHandler(c)

	var rethrown any
	func() {
		defer func() { rethrown = recover() }()
		defer Catch()
		panic("fatal")
	}()

	assert.Equal(t, "fatal", rethrown, "Catch must preserve the panic")

	require.True(t, c.Flush(time.Second))
	require.Len(t, stub.Envelopes(), 1, "the panic is still reported")
}

func TestInstallPanicHandler_Idempotent(t *testing.T) {
	resetPanicBridge(t)

	stub, srv := newCollectorStub(t)
	c := newTestCatcher(t, srv.URL, nil)

	InstallPanicHandler(c)
	InstallPanicHandler(c) // second install is a no-op

	func() {
		defer Recover()
		panic("once")
	}()

	require.True(t, c.Flush(time.Second))
	require.Len(t, stub.Envelopes(), 1, "double install must not double-report")
}

func TestSetPanicHandler_ChainsThroughInstall(t *testing.T) {
	resetPanicBridge(t)

	stub, srv := newCollectorStub(t)
	c := newTestCatcher(t, srv.URL, nil)

	var customCalls int
	prev := SetPanicHandler(func(recovered any, _ []BacktraceFrame) {
		customCalls++
		assert.Equal(t, "chained", recovered)
	})
	assert.Nil(t, prev)

	InstallPanicHandler(c)

	func() {
		defer Recover()
		panic("chained")
	}()

	require.True(t, c.Flush(time.Second))
	require.Len(t, stub.Envelopes(), 1)
	assert.Equal(t, 1, customCalls, "previously registered handler still runs")
}

func TestGo_CapturesGoroutinePanic(t *testing.T) {
	resetPanicBridge(t)

	stub, srv := newCollectorStub(t)
	c := newTestCatcher(t, srv.URL, nil)
	InstallPanicHandler(c)

	done := make(chan struct{})
	Go(func() {
		defer close(done)
		panic("goroutine boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wrapped goroutine did not finish")
	}

	require.True(t, c.Flush(time.Second))
	envelopes := stub.Envelopes()
	require.Len(t, envelopes, 1)
	payload := envelopes[0]["payload"].(map[string]any)
	assert.True(t, strings.HasPrefix(payload["title"].(string), "panic: goroutine boom"))
}

func TestCatcherRecover_PerInstance(t *testing.T) {
	resetPanicBridge(t)

	stub, srv := newCollectorStub(t)
	c := newTestCatcher(t, srv.URL, nil)

	func() {
		defer c.Recover()
		panic("instance")
	}()

	require.True(t, c.Flush(time.Second))
	require.Len(t, stub.Envelopes(), 1)
}

func TestCapturePanic_SwallowsInternalFailure(t *testing.T) {
	resetPanicBridge(t)

	// A nil catcher makes CaptureEvent fault; the nested recover must keep
	// that from escaping the panic handler.
	assert.NotPanics(t, func() {
		capturePanic(nil, "boom", nil)
	})
}

func TestRecover_NoHandlerInstalled(t *testing.T) {
	resetPanicBridge(t)

	assert.NotPanics(t, func() {
		func() {
			defer Recover()
			panic("nowhere to go")
		}()
	})
}
