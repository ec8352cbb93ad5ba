package menu

import (
	"fmt"
	"time"

	"comanda/internal/events"
	"comanda/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Rotation announces each menu window change to subscribers so that open
// menu pages can switch without waiting for their next poll.
type Rotation struct {
	cron      *cron.Cron
	schedule  *Schedule
	publisher events.Publisher
	observe   func(models.MenuCategory)
	log       logrus.FieldLogger
}

// NewRotation registers one job per window start. observe may be nil.
func NewRotation(schedule *Schedule, publisher events.Publisher, observe func(models.MenuCategory), logger logrus.FieldLogger) (*Rotation, error) {
	r := &Rotation{
		cron:      cron.New(cron.WithLocation(schedule.Location())),
		schedule:  schedule,
		publisher: publisher,
		observe:   observe,
		log:       logger,
	}

	for _, w := range schedule.Windows() {
		category := w.Category
		if _, err := r.cron.AddFunc(RotationSpec(w), func() { r.announce(category) }); err != nil {
			return nil, fmt.Errorf("schedule %s rotation: %w", category, err)
		}
	}
	return r, nil
}

// RotationSpec is the cron expression firing at the start of w.
func RotationSpec(w Window) string {
	return fmt.Sprintf("0 %d * * *", w.Start)
}

// Start runs the scheduler in its own goroutine.
func (r *Rotation) Start() {
	r.cron.Start()
}

// Stop halts the scheduler and waits for a running announcement to finish.
func (r *Rotation) Stop() {
	<-r.cron.Stop().Done()
}

// Next returns when the next window change happens.
func (r *Rotation) Next() time.Time {
	var next time.Time
	for _, e := range r.cron.Entries() {
		if next.IsZero() || e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

func (r *Rotation) announce(category models.MenuCategory) {
	r.log.WithField("category", category).Info("menu window changed")
	if r.observe != nil {
		r.observe(category)
	}
	r.publisher.Publish(events.Event{
		Type:     events.MenuRotated,
		Category: category,
		At:       time.Now(),
	})
}
