package uci

import (
	"context"
	"fmt"
	"time"
)

// Matcher reports whether ev resolves a pending wait. It may also record
// events it sees along the way.
type Matcher func(ev Event) bool

// await reads sub until match accepts an event, the timeout elapses, the
// engine output ends or ctx is done. sub is always closed on return.
func await(ctx context.Context, sub *Subscription, done <-chan struct{}, timeout time.Duration, match Matcher) (Event, error) {
	defer sub.Close()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case line := <-sub.C:
			if ev := ParseLine(line); match(ev) {
				return ev, nil
			}
		case <-done:
			// lines published before EOF may still be buffered
			for {
				select {
				case line := <-sub.C:
					if ev := ParseLine(line); match(ev) {
						return ev, nil
					}
				default:
					return Event{}, ErrEngineExited
				}
			}
		case <-timer.C:
			return Event{}, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

func kindIs(kind EventKind) Matcher {
	return func(ev Event) bool { return ev.Kind == kind }
}
