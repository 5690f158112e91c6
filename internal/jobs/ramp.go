package jobs

import (
	"context"
	"time"
)

// ramp emits a fixed progress sequence on a timer while a collaborator call
// is in flight. It is purely cosmetic: the values track elapsed time, not
// how far the collaborator actually got.
type ramp struct {
	from, to, step int
	tick           time.Duration
}

func transcribeRamp(tick time.Duration) ramp { return ramp{from: 11, to: 69, step: 3, tick: tick} }
func analyzeRamp(tick time.Duration) ramp    { return ramp{from: 71, to: 99, step: 2, tick: tick} }

// run calls set with from, from+step, ... up to to, one value per tick, then
// holds. It returns when ctx is cancelled.
func (r ramp) run(ctx context.Context, set func(int)) {
	if r.tick <= 0 || r.step <= 0 {
		return
	}
	t := time.NewTicker(r.tick)
	defer t.Stop()

	for p := r.from; p <= r.to; p += r.step {
		set(p)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
	<-ctx.Done()
}

// values returns the sequence run would emit.
func (r ramp) values() []int {
	var out []int
	for p := r.from; p <= r.to; p += r.step {
		out = append(out, p)
	}
	return out
}
