package orders

import (
	"fmt"
	"strings"

	"comanda/internal/models"
)

// Policy decides which status changes SetStatus accepts.
type Policy string

const (
	// PolicyStrict only follows the kitchen workflow.
	PolicyStrict Policy = "strict"
	// PolicyPermissive accepts any known target status from any state.
	PolicyPermissive Policy = "permissive"
)

// ParsePolicy parses a policy name. An empty name means strict.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyStrict, nil
	case PolicyStrict, PolicyPermissive:
		return p, nil
	}
	return "", fmt.Errorf("unknown transition policy %q", s)
}

var allowedTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusInProgress, models.OrderStatusCancelled},
	models.OrderStatusInProgress: {models.OrderStatusCompleted, models.OrderStatusCancelled},
	models.OrderStatusCompleted:  {},
	models.OrderStatusCancelled:  {},
}

// CanTransition reports whether the kitchen workflow allows moving an order
// from one status to another.
func CanTransition(from, to models.OrderStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedTransitions lists the statuses reachable from from.
func AllowedTransitions(from models.OrderStatus) []models.OrderStatus {
	return append([]models.OrderStatus{}, allowedTransitions[from]...)
}

// Allows reports whether p accepts the status change.
func (p Policy) Allows(from, to models.OrderStatus) bool {
	if !to.Valid() {
		return false
	}
	if p == PolicyPermissive {
		return true
	}
	return CanTransition(from, to)
}

// Targets lists the statuses p accepts from from.
func (p Policy) Targets(from models.OrderStatus) []models.OrderStatus {
	if p == PolicyPermissive {
		return append([]models.OrderStatus{}, models.OrderStatuses...)
	}
	return AllowedTransitions(from)
}
