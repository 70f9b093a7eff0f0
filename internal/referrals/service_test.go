package referrals

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/offerhubhq/offerhub-backend/internal/events"
	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	"github.com/offerhubhq/offerhub-backend/pkg/enums"
	pkgerrors "github.com/offerhubhq/offerhub-backend/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type gormTx struct {
	db *gorm.DB
}

func (g *gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func newReferralService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(&gormTx{db: db}, NewRepository(db), events.NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func TestCreateLink(t *testing.T) {
	t.Parallel()

	svc, db := newReferralService(t)
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, 11, 22)
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	if len(link.Code) != codeLength {
		t.Fatalf("expected %d-char code, got %q", codeLength, link.Code)
	}
	if link.InviterID != 11 || link.OfferID != 22 {
		t.Fatalf("unexpected link: %+v", link)
	}

	var eventCount int64
	if err := db.Model(&models.Event{}).
		Where("user_id = ? AND type = ?", int64(11), enums.EventTypeReferralInviteSent).
		Count(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("expected one invite event, got %d", eventCount)
	}
}

func TestCreateLinkValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newReferralService(t)
	_, err := svc.CreateLink(context.Background(), 0, 5)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveCode(t *testing.T) {
	t.Parallel()

	svc, _ := newReferralService(t)
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, 11, 22)
	if err != nil {
		t.Fatalf("create link: %v", err)
	}

	found, err := svc.ResolveCode(ctx, "  "+link.Code+"  ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if found == nil || found.ID != link.ID {
		t.Fatalf("expected the seeded link, got %+v", found)
	}
}

func TestResolveCodeUnknown(t *testing.T) {
	t.Parallel()

	svc, _ := newReferralService(t)

	// Unknown and blank codes resolve to nothing, never an error.
	found, err := svc.ResolveCode(context.Background(), "nosuchcode")
	if err != nil || found != nil {
		t.Fatalf("unknown code must resolve to nil, got %+v %v", found, err)
	}
	found, err = svc.ResolveCode(context.Background(), "")
	if err != nil || found != nil {
		t.Fatalf("blank code must resolve to nil, got %+v %v", found, err)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:referrals_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.ReferralLink{}, &models.Event{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
