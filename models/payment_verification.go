package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Installment names the client payment installment a verification covers
type Installment string

const (
	InstallmentFirst  Installment = "first"
	InstallmentSecond Installment = "second"
)

// IsValid reports whether the installment name is one of the known tracks
func (i Installment) IsValid() bool {
	return i == InstallmentFirst || i == InstallmentSecond
}

// VerificationMethod distinguishes automatic confirmations from manual ones
type VerificationMethod string

const (
	VerificationMethodAutomatic VerificationMethod = "automatic" // Matched by the collections subsystem
	VerificationMethodManual    VerificationMethod = "manual"    // Confirmed by a back-office operator
)

// VerificationRecordStatus represents the state of a single verification record
type VerificationRecordStatus string

const (
	VerificationRecordStatusVerified VerificationRecordStatus = "verified"
	VerificationRecordStatusPending  VerificationRecordStatus = "pending"
	VerificationRecordStatusFailed   VerificationRecordStatus = "failed"
	VerificationRecordStatusReversed VerificationRecordStatus = "reversed"
)

// PaymentVerification is evidence that an external client payment installment
// was confirmed. At most one record exists per (commission, installment); the
// composite unique index enforces this, not query-time checks. Records are
// only created when a confirmation event arrives, never speculatively.
type PaymentVerification struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	CommissionID uint        `gorm:"not null;uniqueIndex:idx_verification_commission_installment" json:"commission_id"`
	Installment  Installment `gorm:"type:varchar(10);not null;uniqueIndex:idx_verification_commission_installment" json:"installment"`

	// External client-payment (or receivable) event that satisfied this
	// installment, as reported by the collections subsystem.
	ClientPaymentRef string  `gorm:"type:varchar(64);not null;index" json:"client_payment_ref"`
	VerifiedAmount   float64 `gorm:"type:decimal(14,2);not null" json:"verified_amount"`

	Method VerificationMethod       `gorm:"type:varchar(20);not null" json:"method"`
	Status VerificationRecordStatus `gorm:"type:varchar(20);not null;default:'verified';index" json:"status"`

	// VerifiedBy is set for manual verifications
	VerifiedBy *string `gorm:"type:varchar(100)" json:"verified_by,omitempty"`

	// Reversal trail
	ReversedBy     *string    `gorm:"type:varchar(100)" json:"reversed_by,omitempty"`
	ReversalReason *string    `gorm:"type:text" json:"reversal_reason,omitempty"`
	ReversedAt     *time.Time `json:"reversed_at,omitempty"`

	// Audit fields
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relationships
	Commission Commission `gorm:"foreignKey:CommissionID;constraint:OnDelete:CASCADE" json:"commission,omitempty"`
}

// BeforeCreate ensures UUID is set
func (pv *PaymentVerification) BeforeCreate(tx *gorm.DB) error {
	if pv.UUID == uuid.Nil {
		pv.UUID = uuid.New()
	}
	return nil
}

// IsReversed returns true if the verification was explicitly reversed
func (pv *PaymentVerification) IsReversed() bool {
	return pv.Status == VerificationRecordStatusReversed
}

// TableName specifies the table name for GORM
func (PaymentVerification) TableName() string {
	return "payment_verifications"
}

// PaymentVerificationFilter represents filter criteria for verification queries
type PaymentVerificationFilter struct {
	ID               *uint                     `json:"id,omitempty"`
	UUID             *uuid.UUID                `json:"uuid,omitempty"`
	CommissionID     *uint                     `json:"commission_id,omitempty"`
	Installment      *Installment              `json:"installment,omitempty"`
	ClientPaymentRef *string                   `json:"client_payment_ref,omitempty"`
	Method           *VerificationMethod       `json:"method,omitempty"`
	Status           *VerificationRecordStatus `json:"status,omitempty"`
	CreatedAfter     *time.Time                `json:"created_after,omitempty"`
	CreatedBefore    *time.Time                `json:"created_before,omitempty"`
}
