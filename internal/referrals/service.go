package referrals

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/offerhubhq/offerhub-backend/internal/events"
	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	"github.com/offerhubhq/offerhub-backend/pkg/enums"
	pkgerrors "github.com/offerhubhq/offerhub-backend/pkg/errors"
	"gorm.io/gorm"
)

const codeLength = 10

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service generates referral links and resolves codes at claim time.
type Service interface {
	CreateLink(ctx context.Context, inviterID, offerID int64) (*models.ReferralLink, error)
	ResolveCode(ctx context.Context, code string) (*models.ReferralLink, error)
}

type service struct {
	tx        txRunner
	repo      Repository
	eventRepo events.Repository
}

// NewService wires the referral service.
func NewService(tx txRunner, repo Repository, eventRepo events.Repository) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "referral repository required")
	}
	if eventRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event repository required")
	}
	return &service{tx: tx, repo: repo, eventRepo: eventRepo}, nil
}

func (s *service) CreateLink(ctx context.Context, inviterID, offerID int64) (*models.ReferralLink, error) {
	if inviterID <= 0 || offerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inviter id and offer id are required")
	}

	link := &models.ReferralLink{
		Code:      newCode(),
		InviterID: inviterID,
		OfferID:   offerID,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, link); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create referral link")
		}
		event := &models.Event{
			UserID: inviterID,
			Type:   enums.EventTypeReferralInviteSent,
			RefID:  &link.OfferID,
		}
		if err := s.eventRepo.WithTx(tx).Create(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record invite event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (s *service) ResolveCode(ctx context.Context, code string) (*models.ReferralLink, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	return s.repo.FindByCode(ctx, code)
}

func newCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return raw[:codeLength]
}
