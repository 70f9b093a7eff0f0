package enums

import "fmt"

// PaymentMode controls how an offer collects money from a claimant.
type PaymentMode string

const (
	PaymentModeDeposit     PaymentMode = "deposit"
	PaymentModeFull        PaymentMode = "full"
	PaymentModePayInPerson PaymentMode = "pay_in_person"
)

var validPaymentModes = []PaymentMode{
	PaymentModeDeposit,
	PaymentModeFull,
	PaymentModePayInPerson,
}

// String implements fmt.Stringer.
func (m PaymentMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PaymentMode.
func (m PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMode converts raw input into a PaymentMode.
func ParsePaymentMode(value string) (PaymentMode, error) {
	for _, candidate := range validPaymentModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}
