// Package planner maps a template's slot plan onto a selection.
package planner

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/moments/moments-agent/internal/media"
)

// DefaultSlotSeconds fills slots a malformed template does not specify.
const DefaultSlotSeconds = 3.0

// DefaultMaxTotal is the longest template plan a composition accepts.
const DefaultMaxTotal = 40 * time.Second

var (
	ErrSelectionIncomplete = errors.New("selection incomplete")
	ErrPlanTooLong         = errors.New("template plan exceeds maximum duration")
)

// Assignment pairs a selected item with the duration of its slot.
type Assignment struct {
	Item     media.MediaItem
	Duration time.Duration
}

// DurationMs is the slot duration in whole milliseconds.
func (a Assignment) DurationMs() int64 {
	return a.Duration.Milliseconds()
}

// Plan assigns slot durations to the selection by position. The selection
// length must equal the template's slot count.
func Plan(tmpl media.Template, sel media.Selection) ([]Assignment, error) {
	if len(sel) != tmpl.SlotCount() {
		return nil, fmt.Errorf("%w: %d of %d slots filled", ErrSelectionIncomplete, len(sel), tmpl.SlotCount())
	}

	seconds := Durations(tmpl.SlotDurations, len(sel))
	out := make([]Assignment, len(sel))
	for i, item := range sel {
		out[i] = Assignment{Item: item, Duration: secondsToDuration(seconds[i])}
	}
	return out, nil
}

// Durations returns n slot durations in seconds, taken from slots by index
// and default-filled past the end of slots.
func Durations(slots []float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i < len(slots) {
			out[i] = slots[i]
		} else {
			out[i] = DefaultSlotSeconds
		}
	}
	return out
}

// CheckTotal rejects templates whose plan is longer than max. A zero max
// disables the check.
func CheckTotal(tmpl media.Template, max time.Duration) error {
	if max <= 0 {
		return nil
	}
	if total := secondsToDuration(tmpl.TotalSeconds()); total > max {
		return fmt.Errorf("%w: %s > %s", ErrPlanTooLong, total, max)
	}
	return nil
}

// secondsToDuration rounds to the millisecond so 2.2s becomes 2200ms, not 2199ms.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s*1000)) * time.Millisecond
}
