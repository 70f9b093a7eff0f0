package models

import (
	"time"

	"github.com/offerhubhq/offerhub-backend/pkg/enums"
)

// User is a creator or customer account. Guests are created lazily during
// session init with a generated username and no profile data.
type User struct {
	ID                 int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Name               string         `gorm:"column:name;not null"`
	Role               enums.UserRole `gorm:"column:role;type:user_role;not null;default:'customer'"`
	Bio                *string        `gorm:"column:bio"`
	Phone              *string        `gorm:"column:phone"`
	ImageURL           *string        `gorm:"column:image_url"`
	Username           *string        `gorm:"column:username"`
	PaymentAccountID   *string        `gorm:"column:payment_account_id"`
	PaymentAccessToken *string        `gorm:"column:payment_access_token"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
}
