package orders

import (
	"context"
	"fmt"

	"comanda/internal/models"
)

// Stats summarizes every order for the admin dashboard.
type Stats struct {
	TotalOrders  int64                        `json:"totalOrders"`
	Revenue      float64                      `json:"revenue"`
	ActiveOrders int64                        `json:"activeOrders"`
	ByStatus     map[models.OrderStatus]int64 `json:"byStatus"`
}

type statusTotals struct {
	Status models.OrderStatus
	Count  int64
	Amount float64
}

// Stats counts orders per status. Revenue sums the totals of orders that
// were not cancelled.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var rows []statusTotals
	err := s.db.Model(&models.Order{}).
		Select("status, count(*) as count, coalesce(sum(total), 0) as amount").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}

	stats := &Stats{ByStatus: make(map[models.OrderStatus]int64, len(models.OrderStatuses))}
	for _, status := range models.OrderStatuses {
		stats.ByStatus[status] = 0
	}

	var revenue int64
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
		stats.TotalOrders += r.Count
		if r.Status.Active() {
			stats.ActiveOrders += r.Count
		}
		if r.Status != models.OrderStatusCancelled {
			revenue += models.Cents(r.Amount)
		}
	}
	stats.Revenue = float64(revenue) / 100
	return stats, nil
}
