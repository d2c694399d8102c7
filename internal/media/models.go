// Package media holds the value types a composition is built from: templates,
// the media items offered by the gallery, and the user's ordered selection.
package media

import (
	"errors"
	"fmt"
	"strings"
)

type Category string

const (
	CategoryFeature    Category = "FEATURE"
	CategoryNew        Category = "NEW"
	CategoryMostViewed Category = "MOST_VIEWED"
)

var (
	ErrUnknownCategory = errors.New("unknown template category")
	ErrDuplicateMedia  = errors.New("media item selected more than once")
	ErrInvalidTemplate = errors.New("invalid template")
)

// ParseCategory accepts the persisted upper-case names, case-insensitively.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToUpper(strings.TrimSpace(s))) {
	case CategoryFeature:
		return CategoryFeature, nil
	case CategoryNew:
		return CategoryNew, nil
	case CategoryMostViewed:
		return CategoryMostViewed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Template is an immutable slot plan. SlotDurations are in seconds.
type Template struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	SlotDurations []float64 `json:"slot_durations"`
	Category      Category  `json:"category"`
}

func (t Template) SlotCount() int {
	return len(t.SlotDurations)
}

func (t Template) TotalSeconds() float64 {
	var total float64
	for _, d := range t.SlotDurations {
		total += d
	}
	return total
}

// Validate checks slotCount >= 1 and that every slot duration is positive.
func (t Template) Validate() error {
	if t.SlotCount() < 1 {
		return fmt.Errorf("%w: template %d has no slots", ErrInvalidTemplate, t.ID)
	}
	for i, d := range t.SlotDurations {
		if d <= 0 {
			return fmt.Errorf("%w: template %d slot %d has duration %v", ErrInvalidTemplate, t.ID, i, d)
		}
	}
	return nil
}

// Clone returns a copy that shares no memory with t.
func (t Template) Clone() Template {
	c := t
	c.SlotDurations = append([]float64(nil), t.SlotDurations...)
	return c
}

// MediaItem references one source asset. DurationMs is 0 for stills.
// IsSelected is transient UI state and carries no meaning after composition.
type MediaItem struct {
	ID         int64  `json:"id"`
	URI        string `json:"uri"`
	IsVideo    bool   `json:"is_video"`
	DurationMs int64  `json:"duration_ms"`
	IsSelected bool   `json:"is_selected"`
}

// Selection is the user's pick, in pick order.
type Selection []MediaItem

// Validate rejects duplicate media ids.
func (s Selection) Validate() error {
	seen := make(map[int64]bool, len(s))
	for _, item := range s {
		if seen[item.ID] {
			return fmt.Errorf("%w: id %d", ErrDuplicateMedia, item.ID)
		}
		seen[item.ID] = true
	}
	return nil
}

func (s Selection) Clone() Selection {
	if s == nil {
		return nil
	}
	return append(Selection(nil), s...)
}

// HasStills reports whether any item is a still image.
func (s Selection) HasStills() bool {
	for _, item := range s {
		if !item.IsVideo {
			return true
		}
	}
	return false
}
