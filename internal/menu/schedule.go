package menu

import (
	"fmt"
	"time"

	"comanda/internal/models"
)

const hoursPerDay = 24

// Window is the half-open hour range [Start, End) during which a menu
// category is current. A window with Start > End wraps past midnight.
type Window struct {
	Category models.MenuCategory `json:"category" yaml:"category"`
	Start    int                 `json:"start" yaml:"start"`
	End      int                 `json:"end" yaml:"end"`
}

// Contains reports whether hour falls inside the window.
func (w Window) Contains(hour int) bool {
	hour = normalizeHour(hour)
	start, end := w.Start, w.End%hoursPerDay
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// DefaultWindows are the opening hours of the three menus.
var DefaultWindows = []Window{
	{Category: models.MenuMorning, Start: 6, End: 12},
	{Category: models.MenuMidday, Start: 12, End: 18},
	{Category: models.MenuEvening, Start: 18, End: 6},
}

// CategoryForHour maps a wall-clock hour to the menu category served at
// that hour under the default windows. It is defined for every int.
func CategoryForHour(hour int) models.MenuCategory {
	switch h := normalizeHour(hour); {
	case h >= 6 && h < 12:
		return models.MenuMorning
	case h >= 12 && h < 18:
		return models.MenuMidday
	default:
		return models.MenuEvening
	}
}

// Schedule resolves the current menu category from the clock.
type Schedule struct {
	windows  []Window
	byHour   [hoursPerDay]models.MenuCategory
	location *time.Location
}

// NewSchedule validates that windows partition the day, one window per
// category, and builds a schedule evaluated in loc (local time when nil).
func NewSchedule(windows []Window, loc *time.Location) (*Schedule, error) {
	if loc == nil {
		loc = time.Local
	}

	s := &Schedule{
		windows:  append([]Window(nil), windows...),
		location: loc,
	}

	seen := make(map[models.MenuCategory]bool, len(windows))
	for _, w := range windows {
		if !w.Category.Valid() {
			return nil, fmt.Errorf("window has unknown category %q", w.Category)
		}
		if seen[w.Category] {
			return nil, fmt.Errorf("category %s has more than one window", w.Category)
		}
		seen[w.Category] = true

		if w.Start < 0 || w.Start >= hoursPerDay || w.End < 0 || w.End > hoursPerDay {
			return nil, fmt.Errorf("window %s [%d,%d) is outside 0..24", w.Category, w.Start, w.End)
		}
		if w.Start == w.End%hoursPerDay {
			return nil, fmt.Errorf("window %s [%d,%d) is empty", w.Category, w.Start, w.End)
		}
	}
	for _, c := range models.MenuCategories {
		if !seen[c] {
			return nil, fmt.Errorf("category %s has no window", c)
		}
	}

	for hour := 0; hour < hoursPerDay; hour++ {
		for _, w := range s.windows {
			if !w.Contains(hour) {
				continue
			}
			if s.byHour[hour] != "" {
				return nil, fmt.Errorf("hour %d is covered by both %s and %s", hour, s.byHour[hour], w.Category)
			}
			s.byHour[hour] = w.Category
		}
		if s.byHour[hour] == "" {
			return nil, fmt.Errorf("hour %d is not covered by any window", hour)
		}
	}

	return s, nil
}

// DefaultSchedule returns the schedule built from DefaultWindows.
func DefaultSchedule(loc *time.Location) *Schedule {
	s, err := NewSchedule(DefaultWindows, loc)
	if err != nil {
		panic(err)
	}
	return s
}

// Resolve returns the category current at hour.
func (s *Schedule) Resolve(hour int) models.MenuCategory {
	return s.byHour[normalizeHour(hour)]
}

// At returns the category current at t, read in the schedule's location.
func (s *Schedule) At(t time.Time) models.MenuCategory {
	return s.Resolve(t.In(s.location).Hour())
}

// Windows returns a copy of the configured windows.
func (s *Schedule) Windows() []Window {
	return append([]Window(nil), s.windows...)
}

// Location returns the time zone the schedule is evaluated in.
func (s *Schedule) Location() *time.Location {
	return s.location
}

func normalizeHour(hour int) int {
	return ((hour % hoursPerDay) + hoursPerDay) % hoursPerDay
}
