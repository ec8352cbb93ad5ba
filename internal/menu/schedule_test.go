package menu

import (
	"testing"
	"time"

	"comanda/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryForHour(t *testing.T) {
	tests := []struct {
		hour int
		want models.MenuCategory
	}{
		{7, models.MenuMorning},
		{14, models.MenuMidday},
		{20, models.MenuEvening},
		{2, models.MenuEvening},
		{6, models.MenuMorning},
		{11, models.MenuMorning},
		{12, models.MenuMidday},
		{17, models.MenuMidday},
		{18, models.MenuEvening},
		{0, models.MenuEvening},
		{5, models.MenuEvening},
		{23, models.MenuEvening},
	}
	for _, tt := range tests {
		if got := CategoryForHour(tt.hour); got != tt.want {
			t.Errorf("CategoryForHour(%d) = %s, want %s", tt.hour, got, tt.want)
		}
	}
}

func TestCategoryForHourCoversWholeDay(t *testing.T) {
	counts := map[models.MenuCategory]int{}
	for hour := 0; hour < 24; hour++ {
		c := CategoryForHour(hour)
		require.True(t, c.Valid(), "hour %d", hour)
		counts[c]++
	}
	assert.Equal(t, 6, counts[models.MenuMorning])
	assert.Equal(t, 6, counts[models.MenuMidday])
	assert.Equal(t, 12, counts[models.MenuEvening])
}

func TestDefaultScheduleMatchesResolver(t *testing.T) {
	s := DefaultSchedule(time.UTC)
	for hour := -24; hour < 48; hour++ {
		assert.Equal(t, CategoryForHour(hour), s.Resolve(hour), "hour %d", hour)
	}
}

func TestScheduleAtUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-4", -4*60*60)
	s := DefaultSchedule(loc)

	// 10:00 UTC is 06:00 at UTC-4
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, models.MenuMorning, s.At(at))
	assert.Equal(t, models.MenuEvening, DefaultSchedule(time.UTC).At(at.Add(-5*time.Hour)))
}

func TestNewScheduleCustomWindows(t *testing.T) {
	s, err := NewSchedule([]Window{
		{Category: models.MenuMorning, Start: 7, End: 11},
		{Category: models.MenuMidday, Start: 11, End: 19},
		{Category: models.MenuEvening, Start: 19, End: 7},
	}, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, models.MenuMorning, s.Resolve(7))
	assert.Equal(t, models.MenuMidday, s.Resolve(11))
	assert.Equal(t, models.MenuMidday, s.Resolve(18))
	assert.Equal(t, models.MenuEvening, s.Resolve(19))
	assert.Equal(t, models.MenuEvening, s.Resolve(6))
}

func TestNewScheduleAcceptsEndOfDay(t *testing.T) {
	_, err := NewSchedule([]Window{
		{Category: models.MenuEvening, Start: 0, End: 6},
		{Category: models.MenuMorning, Start: 6, End: 12},
		{Category: models.MenuMidday, Start: 12, End: 24},
	}, time.UTC)
	assert.NoError(t, err)
}

func TestNewScheduleRejectsBadWindows(t *testing.T) {
	tests := map[string][]Window{
		"gap": {
			{Category: models.MenuMorning, Start: 6, End: 11},
			{Category: models.MenuMidday, Start: 12, End: 18},
			{Category: models.MenuEvening, Start: 18, End: 6},
		},
		"overlap": {
			{Category: models.MenuMorning, Start: 6, End: 13},
			{Category: models.MenuMidday, Start: 12, End: 18},
			{Category: models.MenuEvening, Start: 18, End: 6},
		},
		"missing category": {
			{Category: models.MenuMorning, Start: 6, End: 18},
			{Category: models.MenuEvening, Start: 18, End: 6},
		},
		"duplicate category": {
			{Category: models.MenuMorning, Start: 6, End: 12},
			{Category: models.MenuMorning, Start: 12, End: 18},
			{Category: models.MenuEvening, Start: 18, End: 6},
		},
		"unknown category": {
			{Category: "BRUNCH", Start: 6, End: 12},
			{Category: models.MenuMidday, Start: 12, End: 18},
			{Category: models.MenuEvening, Start: 18, End: 6},
		},
		"out of range": {
			{Category: models.MenuMorning, Start: 6, End: 12},
			{Category: models.MenuMidday, Start: 12, End: 30},
			{Category: models.MenuEvening, Start: 18, End: 6},
		},
		"empty window": {
			{Category: models.MenuMorning, Start: 6, End: 6},
			{Category: models.MenuMidday, Start: 12, End: 18},
			{Category: models.MenuEvening, Start: 18, End: 6},
		},
	}
	for name, windows := range tests {
		_, err := NewSchedule(windows, time.UTC)
		assert.Error(t, err, name)
	}
}
