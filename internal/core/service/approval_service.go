package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pinsync/pinsync-server/internal/core/domain"
	"github.com/pinsync/pinsync-server/internal/core/ports"
	"github.com/pinsync/pinsync-server/internal/metrics"
)

// DecisionDispatcher is the interface the workflow uses to hand a
// notification to the delivery queue. Enqueue must not block the caller.
type DecisionDispatcher interface {
	Enqueue(n ports.DecisionNotification)
}

// ApprovalService runs the artist approval state machine:
// pending → approved or pending → rejected. A rejected artist may be
// re-approved later as a fresh transition.
type ApprovalService struct {
	repo       ports.UserRepository
	dispatcher DecisionDispatcher
	log        zerolog.Logger
}

func NewApprovalService(repo ports.UserRepository, dispatcher DecisionDispatcher, log zerolog.Logger) *ApprovalService {
	return &ApprovalService{repo: repo, dispatcher: dispatcher, log: log}
}

// Decide applies an approval decision to the target artist.
//
// The acting user must be an admin and the target must exist with role
// artist. Once the flag is durable a notification is enqueued; its delivery
// outcome never affects the result returned here.
func (s *ApprovalService) Decide(ctx context.Context, targetID string, approved bool, adminID string) (*domain.User, error) {
	admin, err := s.repo.FindByID(ctx, adminID)
	if err != nil || !admin.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Role != domain.RoleArtist {
		return nil, domain.ErrInvalidRole
	}

	updated, err := s.repo.SetApproval(ctx, targetID, approved)
	if err != nil {
		return nil, err
	}

	decision := "rejected"
	if approved {
		decision = "approved"
	}
	metrics.ApprovalDecisionsTotal.WithLabelValues(decision).Inc()

	s.dispatcher.Enqueue(ports.DecisionNotification{
		DecisionID: newDecisionID(),
		Username:   updated.Username,
		Email:      updated.Email,
		Approved:   approved,
	})

	s.log.Info().
		Str("username", updated.Username).
		Str("admin_id", adminID).
		Bool("approved", approved).
		Msg("approval decision applied")

	return updated, nil
}

// newDecisionID returns a unique id for a single workflow transition, used to
// guarantee at most one notification attempt per decision.
func newDecisionID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// fallback: use current nanoseconds
		return fmt.Sprintf("dec-%016x", time.Now().UnixNano())
	}
	return fmt.Sprintf("dec-%x", b)
}
