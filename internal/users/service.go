package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/offerhubhq/offerhub-backend/internal/claims"
	"github.com/offerhubhq/offerhub-backend/internal/events"
	"github.com/offerhubhq/offerhub-backend/internal/offers"
	"github.com/offerhubhq/offerhub-backend/pkg/db"
	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	"github.com/offerhubhq/offerhub-backend/pkg/enums"
	pkgerrors "github.com/offerhubhq/offerhub-backend/pkg/errors"
)

const inboxLimit = 50

// Service manages accounts and the profile aggregation.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	CreateGuest(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*models.User, error)
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	Inbox(ctx context.Context, userID int64) ([]models.Event, error)
}

// RegisterInput carries a validated registration payload.
type RegisterInput struct {
	Name     string
	Role     enums.UserRole
	Username *string
}

// UpdateProfileInput carries partial profile edits. Nil fields are untouched.
type UpdateProfileInput struct {
	Name             *string
	Bio              *string
	Phone            *string
	ImageURL         *string
	Username         *string
	PaymentAccountID *string
}

// Profile is the profile page aggregation: account, authored offers, claims,
// and recent activity.
type Profile struct {
	User     *models.User
	Offers   []models.Offer
	Claims   []models.Claim
	Activity []models.Event
}

type service struct {
	repo      Repository
	offerRepo offers.Repository
	claimRepo claims.Repository
	eventRepo events.Repository
}

// NewService wires the user service.
func NewService(
	repo Repository,
	offerRepo offers.Repository,
	claimRepo claims.Repository,
	eventRepo events.Repository,
) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository required")
	}
	if offerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "offer repository required")
	}
	if claimRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "claim repository required")
	}
	if eventRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event repository required")
	}
	return &service{
		repo:      repo,
		offerRepo: offerRepo,
		claimRepo: claimRepo,
		eventRepo: eventRepo,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	role := input.Role
	if role == "" {
		role = enums.UserRoleCustomer
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role is invalid")
	}

	user := &models.User{Name: name, Role: role}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username != "" {
			if err := s.checkUsernameFree(ctx, username, 0); err != nil {
				return nil, err
			}
			user.Username = &username
		}
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username is already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return user, nil
}

// CreateGuest provisions an anonymous account with a generated handle so a
// visitor can claim before registering.
func (s *service) CreateGuest(ctx context.Context) (*models.User, error) {
	handle := "guest-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	user := &models.User{
		Name:     "Guest",
		Role:     enums.UserRoleCustomer,
		Username: &handle,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create guest")
	}
	return user, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*models.User, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		user.Name = name
	}
	if input.Bio != nil {
		user.Bio = input.Bio
	}
	if input.Phone != nil {
		user.Phone = input.Phone
	}
	if input.ImageURL != nil {
		user.ImageURL = input.ImageURL
	}
	if input.PaymentAccountID != nil {
		user.PaymentAccountID = input.PaymentAccountID
	}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "username cannot be empty")
		}
		if err := s.checkUsernameFree(ctx, username, user.ID); err != nil {
			return nil, err
		}
		user.Username = &username
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username is already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	return user, nil
}

func (s *service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	authored, err := s.offerRepo.ListByCreator(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offers")
	}
	claimed, err := s.claimRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load claims")
	}
	activity, err := s.eventRepo.ListForUser(ctx, userID, inboxLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load activity")
	}

	return &Profile{
		User:     user,
		Offers:   authored,
		Claims:   claimed,
		Activity: activity,
	}, nil
}

// Inbox returns the user's recent feed entries, newest first.
func (s *service) Inbox(ctx context.Context, userID int64) ([]models.Event, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.eventRepo.ListForUser(ctx, userID, inboxLimit)
}

func (s *service) checkUsernameFree(ctx context.Context, username string, selfID int64) error {
	existing, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
	}
	if existing != nil && existing.ID != selfID {
		return pkgerrors.New(pkgerrors.CodeConflict, "username is already taken")
	}
	return nil
}
