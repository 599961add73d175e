package dto

// RecordVerificationRequest reports that an external client payment
// installment was confirmed (or failed to confirm) for a commission
type RecordVerificationRequest struct {
	CommissionUUID   string  `json:"commission_uuid" validate:"required,uuid"`
	Installment      string  `json:"installment" validate:"required,oneof=first second"`
	ClientPaymentRef string  `json:"client_payment_ref" validate:"required,max=64"`
	VerifiedAmount   float64 `json:"verified_amount" validate:"required,gt=0"`
	Result           string  `json:"result" validate:"required,oneof=verified failed"`
	Method           string  `json:"method" validate:"required,oneof=automatic manual"`
	VerifiedBy       *string `json:"verified_by" validate:"omitempty,max=100"`
}

// VerificationDTO is the wire representation of one verification record
type VerificationDTO struct {
	ID               uint    `json:"id"`
	UUID             string  `json:"uuid"`
	CommissionUUID   string  `json:"commission_uuid"`
	Installment      string  `json:"installment"`
	ClientPaymentRef string  `json:"client_payment_ref"`
	VerifiedAmount   float64 `json:"verified_amount"`
	Method           string  `json:"method"`
	Status           string  `json:"status"`
	VerifiedBy       *string `json:"verified_by,omitempty"`
	ReversedBy       *string `json:"reversed_by,omitempty"`
	ReversalReason   *string `json:"reversal_reason,omitempty"`
	ReversedAt       *string `json:"reversed_at,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// RecordVerificationResponse returns the verification record and the
// commission's updated verification track
type RecordVerificationResponse struct {
	Verification         VerificationDTO `json:"verification"`
	VerificationStatus   string          `json:"verification_status"`
	VerificationProgress int             `json:"verification_progress"`
}

// ReverseVerificationRequest undoes a previously verified installment
type ReverseVerificationRequest struct {
	CommissionUUID string `json:"commission_uuid" validate:"required,uuid"`
	Installment    string `json:"installment" validate:"required,oneof=first second"`
	ReversedBy     string `json:"reversed_by" validate:"required,max=100"`
	Reason         string `json:"reason" validate:"required,max=500"`
}

// ReverseVerificationResponse reports the downgraded track and whether a paid
// commission had to be reverted to pending
type ReverseVerificationResponse struct {
	Verification       VerificationDTO `json:"verification"`
	VerificationStatus string          `json:"verification_status"`
	PaymentReverted    bool            `json:"payment_reverted"`
}

// SetEligibilityRequest carries the reconciliation subsystem's payout
// eligibility decision for a commission
type SetEligibilityRequest struct {
	IsEligible *bool  `json:"is_eligible" validate:"required"`
	Source     string `json:"source" validate:"omitempty,max=100"`
}

// SetEligibilityResponse returns the commission's updated gate state
type SetEligibilityResponse struct {
	CommissionUUID       string `json:"commission_uuid"`
	IsEligibleForPayment bool   `json:"is_eligible_for_payment"`
}
