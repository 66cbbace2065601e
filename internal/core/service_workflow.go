package core

// service_workflow.go implements the two transition operations on a single
// record. Both state machines are open: any value may move to any other,
// and no state is terminal. Only membership in the enum is enforced.

import (
	"context"
	"fmt"
	"time"
)

// UpdateStatus sets the lifecycle status of a record visible to the
// caller. Unknown statuses are rejected before anything is read.
func (s *Service) UpdateStatus(ctx context.Context, caller *User, id string, status Status) (*ApplicationRecord, error) {
	if !status.Valid() {
		return nil, InvalidInput("Invalid status")
	}

	rec, err := s.getScoped(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	rec.Status = status
	rec.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateApplication(ctx, rec); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	return rec, nil
}

// UpdateFeedback sets the hearing feedback of a record visible to the
// caller. Only POSITIVE and NEGATIVE are accepted here; empty remarks
// leave the stored remarks untouched.
func (s *Service) UpdateFeedback(ctx context.Context, caller *User, id string, feedback Feedback, remarks string) (*ApplicationRecord, error) {
	if feedback != FeedbackPositive && feedback != FeedbackNegative {
		return nil, InvalidInput("Invalid feedback")
	}

	rec, err := s.getScoped(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	rec.Feedback = feedback
	if remarks != "" {
		rec.Remarks = remarks
	}
	rec.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateApplication(ctx, rec); err != nil {
		return nil, fmt.Errorf("update feedback: %w", err)
	}
	return rec, nil
}
