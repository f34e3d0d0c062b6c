package statemachine

import (
	"errors"

	"canteen-order-api/models"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string // "owner", "customer", "system"
}

// validTransitions is the authoritative state machine definition.
// "system" covers the fulfillment service and the reconciliation job.
var validTransitions = []Transition{
	// Fulfillment marks a pending order paid
	{From: models.OrderPending, To: models.OrderPaid, Actor: "system"},
	// Reconciliation expires a stale unpaid order; customers may also back out
	{From: models.OrderPending, To: models.OrderCancelled, Actor: "system"},
	{From: models.OrderPending, To: models.OrderCancelled, Actor: "customer"},
	// Canteen owner works the order forward
	{From: models.OrderPaid, To: models.OrderPreparing, Actor: "owner"},
	{From: models.OrderPreparing, To: models.OrderReady, Actor: "owner"},
	{From: models.OrderReady, To: models.OrderCompleted, Actor: "owner"},
	// Paid orders can still be cancelled before completion
	{From: models.OrderPaid, To: models.OrderCancelled, Actor: "customer"},
	{From: models.OrderPaid, To: models.OrderCancelled, Actor: "owner"},
	{From: models.OrderPaid, To: models.OrderCancelled, Actor: "system"},
	{From: models.OrderPreparing, To: models.OrderCancelled, Actor: "owner"},
	{From: models.OrderReady, To: models.OrderCancelled, Actor: "owner"},
}

// transitionKey is used to look up valid transitions quickly
type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string
}

// Build a lookup map for O(1) validation
var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// RequiresPayment reports whether a transition target is only reachable
// once the order's payment succeeded. Cancellation is the one move allowed
// for unpaid orders.
func RequiresPayment(to models.OrderStatus) bool {
	return to != models.OrderCancelled
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor string) error {
	key := transitionKey{From: from, To: to, Actor: actor}
	if transitionMap[key] {
		return nil
	}
	return errors.New(
		"invalid transition: " + string(from) + " → " + string(to) +
			" is not allowed for actor '" + actor + "'. " +
			"Valid transitions from " + string(from) + " are: " + describeValidFrom(from),
	)
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	result := ""
	for i, s := range nexts {
		if i > 0 {
			result += ", "
		}
		result += string(s)
	}
	return result
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
