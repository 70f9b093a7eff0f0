package enums

import "fmt"

// ClaimStatus tracks the lifecycle of a claim from reservation to check-in.
type ClaimStatus string

const (
	ClaimStatusPending     ClaimStatus = "pending"
	ClaimStatusDepositPaid ClaimStatus = "deposit_paid"
	ClaimStatusRedeemed    ClaimStatus = "redeemed"
)

var validClaimStatuses = []ClaimStatus{
	ClaimStatusPending,
	ClaimStatusDepositPaid,
	ClaimStatusRedeemed,
}

// String implements fmt.Stringer.
func (c ClaimStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ClaimStatus.
func (c ClaimStatus) IsValid() bool {
	for _, candidate := range validClaimStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseClaimStatus converts raw input into a ClaimStatus.
func ParseClaimStatus(value string) (ClaimStatus, error) {
	for _, candidate := range validClaimStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid claim status %q", value)
}
