package hawk

import (
	"fmt"
	"runtime"
	"strings"
)

// maxBacktraceDepth bounds the number of program counters collected per event.
const maxBacktraceDepth = 64

// newManualEvent builds an event payload for an explicit report.
// It never fails: an empty message is replaced with a sentinel title.
// skip counts stack frames to omit from the backtrace, starting at the
// caller of newManualEvent.
func newManualEvent(message string, skip int) EventData {
	if message == "" {
		message = "unknown"
	}

	return EventData{
		Title:          message,
		Type:           EventTypeManual,
		Backtrace:      captureBacktrace(skip + 1),
		CatcherVersion: CatcherVersion,
	}
}

// newPanicEvent builds an event payload from a recovered panic value.
// It never fails and never panics itself: unusable inputs fall back to
// sentinel strings because this runs inside panic handling.
func newPanicEvent(recovered any, frames []BacktraceFrame) EventData {
	title := "panic: " + formatRecovered(recovered)
	if len(frames) > 0 && frames[0].File != "" {
		title = fmt.Sprintf("%s at %s:%d", title, frames[0].File, frames[0].Line)
	}

	return EventData{
		Title:          title,
		Type:           EventTypePanic,
		Backtrace:      frames,
		CatcherVersion: CatcherVersion,
	}
}

// formatRecovered renders a recovered panic value as a string.
func formatRecovered(recovered any) string {
	switch v := recovered.(type) {
	case nil:
		return "unknown panic"
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// captureBacktrace collects stack frames at the call site, skipping the
// given number of frames (0 = the caller of captureBacktrace). Frames with
// neither a file nor a function are filtered out, as are the runtime's own
// panic machinery frames. Returns nil when nothing useful was resolved.
func captureBacktrace(skip int) []BacktraceFrame {
	pcs := make([]uintptr, maxBacktraceDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	out := make([]BacktraceFrame, 0, n)

	for {
		frame, more := frames.Next()

		if frame.File == "" && frame.Function == "" {
			if !more {
				break
			}
			continue
		}

		if !strings.HasPrefix(frame.Function, "runtime.") {
			out = append(out, BacktraceFrame{
				File:     frame.File,
				Line:     frame.Line,
				Function: frame.Function,
			})
		}

		if !more {
			break
		}
	}

	if len(out) == 0 {
		return nil
	}

	return out
}
