package enums

import "fmt"

// PaymentStatus tracks the lifecycle of a recorded payment leg.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusZero      PaymentStatus = "zero"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusSucceeded,
	PaymentStatusZero,
}

// Settled reports whether the status satisfies the redemption gate.
func (p PaymentStatus) Settled() bool {
	switch p {
	case PaymentStatusPaid, PaymentStatusSucceeded, PaymentStatusZero:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
