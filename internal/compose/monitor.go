package compose

import (
	"context"
	"math"
	"time"
)

// DefaultPollInterval is the progress polling cadence.
const DefaultPollInterval = 100 * time.Millisecond

// ProgressSource is the pollable half of a Backend.
type ProgressSource interface {
	Progress() (fraction float64, ok bool)
}

// Monitor polls a progress source until the attempt's outcome arrives.
type Monitor struct {
	source   ProgressSource
	interval time.Duration
}

func NewMonitor(source ProgressSource, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{source: source, interval: interval}
}

// Run emits a Progress result per tick while waiting on done. It returns the
// outcome as soon as one is received, or ctx's error if ctx ends first. No
// progress is emitted once an outcome is available.
func (m *Monitor) Run(ctx context.Context, done <-chan Outcome, emit func(Result)) (Outcome, error) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case outcome := <-done:
			return outcome, nil
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case <-ticker.C:
			// done and a tick can be ready together; the outcome wins.
			select {
			case outcome := <-done:
				return outcome, nil
			default:
			}
			if fraction, ok := m.source.Progress(); ok {
				emit(Progress{Percent: ToPercent(fraction)})
			}
		}
	}
}

// ToPercent converts a fraction to a percentage in [0, 100].
func ToPercent(fraction float64) int {
	if math.IsNaN(fraction) {
		return 0
	}
	p := int(math.Round(fraction * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
