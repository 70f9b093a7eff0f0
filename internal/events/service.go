package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	"github.com/offerhubhq/offerhub-backend/pkg/enums"
)

// Service defines operations over the append-only activity feed.
type Service interface {
	Append(ctx context.Context, input AppendEventInput) (*models.Event, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]models.Event, error)
	ListForOffer(ctx context.Context, offerID int64, limit int) ([]models.Event, error)
}

// AppendEventInput captures the immutable data a feed event requires.
type AppendEventInput struct {
	UserID   int64           `json:"user_id"`
	Type     enums.EventType `json:"type"`
	RefID    *int64          `json:"ref_id"`
	Metadata json.RawMessage `json:"metadata"`
}

type service struct {
	repo Repository
}

// NewService wires an event service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("event repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Append(ctx context.Context, input AppendEventInput) (*models.Event, error) {
	if input.UserID <= 0 {
		return nil, fmt.Errorf("recipient user id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid event type %q", input.Type)
	}

	event := &models.Event{
		UserID:   input.UserID,
		Type:     input.Type,
		RefID:    input.RefID,
		Metadata: input.Metadata,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) ListForUser(ctx context.Context, userID int64, limit int) ([]models.Event, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("user id is required")
	}
	return s.repo.ListForUser(ctx, userID, limit)
}

func (s *service) ListForOffer(ctx context.Context, offerID int64, limit int) ([]models.Event, error) {
	if offerID <= 0 {
		return nil, fmt.Errorf("offer id is required")
	}
	return s.repo.ListForOffer(ctx, offerID, limit)
}
