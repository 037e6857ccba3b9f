// Package hawk is the Go error catcher for the Hawk collector.
//
// The catcher captures explicit reports and panics in a running process
// and forwards them to the collector as structured events. Producers never
// block: events go through a bounded queue and a single background worker
// delivers them over HTTP with retry and backoff.
//
// Typical usage:
//
//	err := hawk.Init("BASE64_TOKEN", hawk.Config{CatchPanics: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer hawk.Shutdown(context.Background())
//
//	hawk.Send("something broke")
//
// Panic capture in goroutines:
//
//	go func() {
//	    defer hawk.Recover()
//	    // work that might panic
//	}()
//
// All delivery failures are handled internally (logged and counted) — no
// error from the catcher ever propagates into application control flow. The
// only user-visible signal is the boolean "accepted" result of the capture
// functions and the diagnostic counters.
package hawk
