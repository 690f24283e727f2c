package ports

import "context"

// DecisionNotification carries everything needed to tell a user about an
// approval decision. DecisionID is unique per workflow transition and is the
// dedup key guaranteeing at most one delivery attempt per decision.
type DecisionNotification struct {
	DecisionID string
	Username   string
	Email      string
	Approved   bool
}

// Notifier delivers a single decision notification. Failures are logged by
// the caller and never surface to the approval transition.
type Notifier interface {
	NotifyDecision(ctx context.Context, n DecisionNotification) error
}
