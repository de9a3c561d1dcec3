// Package humanize produces the randomized pacing that keeps a scripted
// session looking like a person: jittered delays, natural scrolling, and
// idle mouse movement.
package humanize

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Delay sleeps a uniformly random duration in [min, max], or returns early
// when ctx is cancelled.
func Delay(ctx context.Context, min, max time.Duration) error {
	if max < min {
		max = min
	}
	d := min
	if span := max - min; span > 0 {
		d += time.Duration(rand.Int64N(int64(span)))
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pause is Delay for call sites that have nothing to do with the
// cancellation error; the pacing simply ends early.
func Pause(ctx context.Context, min, max time.Duration) {
	_ = Delay(ctx, min, max)
}

// Jitter returns a random duration in [min, max].
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)))
}

// AdaptiveDelay scales the base range by batch progress: ×1.5 past 70% and
// ×2.0 past 90%, because pattern detection tightens over a long run.
func AdaptiveDelay(ctx context.Context, current, total int, min, max time.Duration) error {
	factor := 1.0
	if total > 0 {
		switch progress := float64(current) / float64(total); {
		case progress > 0.9:
			factor = 2.0
		case progress > 0.7:
			factor = 1.5
		}
	}
	scale := func(d time.Duration) time.Duration {
		return time.Duration(float64(d) * factor)
	}
	return Delay(ctx, scale(min), scale(max))
}

// ScaleFactor exposes the progress multiplier for testing.
func ScaleFactor(current, total int) float64 {
	if total <= 0 {
		return 1.0
	}
	switch progress := float64(current) / float64(total); {
	case progress > 0.9:
		return 2.0
	case progress > 0.7:
		return 1.5
	default:
		return 1.0
	}
}

// NaturalScroll scrolls the page downward in a few uneven steps with short
// pauses, the way a reader skims. Errors are swallowed: pacing is never a
// correctness requirement.
func NaturalScroll(ctx context.Context, page *rod.Page) {
	if page == nil {
		return
	}
	steps := 3 + rand.IntN(4)
	for i := 0; i < steps; i++ {
		delta := 200 + rand.IntN(500)
		_, _ = page.Context(ctx).Eval(`(dy) => window.scrollBy(0, dy)`, delta)
		if err := Delay(ctx, 300*time.Millisecond, 900*time.Millisecond); err != nil {
			return
		}
	}
}

// IdleMouse wanders the pointer around the viewport a few times. Some
// challenge widgets only issue a token after observing pointer activity.
func IdleMouse(ctx context.Context, page *rod.Page) {
	if page == nil {
		return
	}
	moves := 2 + rand.IntN(3)
	for i := 0; i < moves; i++ {
		x := float64(100 + rand.IntN(1000))
		y := float64(100 + rand.IntN(600))
		if err := page.Context(ctx).Mouse.MoveTo(proto.Point{X: x, Y: y}); err != nil {
			return
		}
		if err := Delay(ctx, 150*time.Millisecond, 500*time.Millisecond); err != nil {
			return
		}
	}
}
