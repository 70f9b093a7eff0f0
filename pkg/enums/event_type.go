package enums

import "fmt"

// EventType labels entries in the append-only activity feed.
type EventType string

const (
	EventTypeOfferCreated        EventType = "OFFER_CREATED"
	EventTypeOfferClaimed        EventType = "OFFER_CLAIMED"
	EventTypeDepositPaid         EventType = "DEPOSIT_PAID"
	EventTypeRedeemedIRL         EventType = "REDEEMED_IRL"
	EventTypeRedemptionCompleted EventType = "REDEMPTION_COMPLETED"
	EventTypeReferralInviteSent  EventType = "REFERRAL_INVITE_SENT"
	EventTypeReferralConverted   EventType = "REFERRAL_CONVERTED"
)

var validEventTypes = []EventType{
	EventTypeOfferCreated,
	EventTypeOfferClaimed,
	EventTypeDepositPaid,
	EventTypeRedeemedIRL,
	EventTypeRedemptionCompleted,
	EventTypeReferralInviteSent,
	EventTypeReferralConverted,
}

// String implements fmt.Stringer.
func (e EventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EventType.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventType converts raw input into an EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
