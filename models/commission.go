// Package models contains domain entities and business models for the back-office system
package models

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentStatus represents the cash settlement state of a commission
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // Commission generated, not yet paid out
	PaymentStatusPaid      PaymentStatus = "paid"      // Commission paid to the beneficiary
	PaymentStatusCancelled PaymentStatus = "cancelled" // Commission cancelled before payment
)

// CommissionStatus represents the allocation progress of a commission family.
// It tracks how much of a parent's amount has been delegated to divisions;
// bulk payment sets it to fully_paid when the record is settled.
type CommissionStatus string

const (
	CommissionStatusGenerated     CommissionStatus = "generated"      // No divisions allocated yet
	CommissionStatusPartiallyPaid CommissionStatus = "partially_paid" // Divisions cover (0, 100)% of the amount
	CommissionStatusFullyPaid     CommissionStatus = "fully_paid"     // Divisions cover 100%, or the record is settled
)

// CommissionType represents the kind of sale that generated a commission
type CommissionType string

const (
	CommissionTypeCashSale        CommissionType = "cash_sale"        // Full payment at contract time
	CommissionTypeInstallmentSale CommissionType = "installment_sale" // Client pays in installments, payout gated on verification
	CommissionTypePresale         CommissionType = "presale"          // Off-plan sale, payout gated on verification
)

// RequiresClientPaymentVerification reports whether commissions of this type
// are only payable after the client's own payments are confirmed.
func (t CommissionType) RequiresClientPaymentVerification() bool {
	return t == CommissionTypeInstallmentSale || t == CommissionTypePresale
}

// VerificationStatus represents the client-payment verification track of a commission
type VerificationStatus string

const (
	VerificationStatusPending        VerificationStatus = "pending_verification"
	VerificationStatusFirstVerified  VerificationStatus = "first_payment_verified"
	VerificationStatusSecondVerified VerificationStatus = "second_payment_verified"
	VerificationStatusFullyVerified  VerificationStatus = "fully_verified"
	VerificationStatusFailed         VerificationStatus = "verification_failed"
)

// Commission represents one ledger entry: an amount owed to an employee for a
// sale, or a percentage share of such an amount. Records form a two-level
// hierarchy: a record with no parent and IsPayable=false is a control
// aggregate that only groups its divisions; a record with a parent is a
// division holding a share of the parent's amount.
type Commission struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	// Beneficiary and originating sale
	EmployeeID     uint           `gorm:"not null;index" json:"employee_id"`
	SaleContractID uint           `gorm:"not null;index" json:"sale_contract_id"`
	Type           CommissionType `gorm:"type:varchar(30);not null;index" json:"type"`

	// Rate calculation inputs and outputs. Inputs are stored so the
	// percentage is re-derivable for audit.
	SaleAmount float64 `gorm:"type:decimal(14,2);not null" json:"sale_amount"`
	TermMonths int     `gorm:"not null" json:"term_months"`
	SalesCount int     `gorm:"not null" json:"sales_count"`
	Percentage float64 `gorm:"type:decimal(5,2);not null" json:"percentage"`

	// Amount is this record's own share; TotalAmount is the full commission
	// of the split family and is only meaningful on the root record.
	Amount      float64 `gorm:"type:decimal(14,2);not null" json:"amount"`
	TotalAmount float64 `gorm:"type:decimal(14,2);not null;default:0" json:"total_amount"`

	// Lifecycle
	PaymentStatus    PaymentStatus    `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	Status           CommissionStatus `gorm:"type:varchar(20);not null;default:'generated';index" json:"status"`
	PaymentDate      *time.Time       `gorm:"index" json:"payment_date"`
	CommissionPeriod string           `gorm:"type:varchar(7);not null;index" json:"commission_period"` // YYYY-MM
	PaymentPeriod    *string          `gorm:"type:varchar(12);index" json:"payment_period"`            // YYYY-MM-P{part}

	// Hierarchy
	ParentCommissionID *uint   `gorm:"index" json:"parent_commission_id"`
	IsPayable          bool    `gorm:"not null;default:true;index" json:"is_payable"`
	PaymentPart        int     `gorm:"not null;default:1" json:"payment_part"`
	PaymentPercentage  float64 `gorm:"type:decimal(5,2);not null;default:100" json:"payment_percentage"` // Share of parent amount (0-100)

	// Client payment verification. Only meaningful when
	// RequiresClientPaymentVerification is true. IsEligibleForPayment is
	// maintained by the external reconciliation process; the ledger gates on
	// it but never computes it.
	RequiresClientPaymentVerification bool               `gorm:"not null;default:false" json:"requires_client_payment_verification"`
	PaymentVerificationStatus         VerificationStatus `gorm:"type:varchar(30);not null;default:'pending_verification';index" json:"payment_verification_status"`
	IsEligibleForPayment              bool               `gorm:"not null;default:false" json:"is_eligible_for_payment"`
	FirstPaymentVerifiedAt            *time.Time         `json:"first_payment_verified_at"`
	SecondPaymentVerifiedAt           *time.Time         `json:"second_payment_verified_at"`

	// Audit fields
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	Employee         Employee     `gorm:"foreignKey:EmployeeID;constraint:OnDelete:CASCADE" json:"employee,omitempty"`
	SaleContract     SaleContract `gorm:"foreignKey:SaleContractID;constraint:OnDelete:CASCADE" json:"sale_contract,omitempty"`
	ParentCommission *Commission  `gorm:"foreignKey:ParentCommissionID" json:"parent_commission,omitempty"`
	Divisions        []Commission `gorm:"foreignKey:ParentCommissionID" json:"divisions,omitempty"`
}

// BeforeCreate ensures UUID is set
func (c *Commission) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	return nil
}

// IsDivision returns true if this record is a share of a parent commission
func (c *Commission) IsDivision() bool {
	return c.ParentCommissionID != nil
}

// IsControlAggregate returns true if this record only exists to group divisions
func (c *Commission) IsControlAggregate() bool {
	return c.ParentCommissionID == nil && !c.IsPayable
}

// IsPaid returns true if the commission has been settled
func (c *Commission) IsPaid() bool {
	return c.PaymentStatus == PaymentStatusPaid
}

// IsCancelled returns true if the commission was cancelled
func (c *Commission) IsCancelled() bool {
	return c.PaymentStatus == PaymentStatusCancelled
}

// MarkPaid settles the record. Paid status is monotonic; only the
// verification reversal path may undo it.
func (c *Commission) MarkPaid(paymentDate time.Time) {
	c.PaymentStatus = PaymentStatusPaid
	c.Status = CommissionStatusFullyPaid
	c.PaymentDate = &paymentDate
}

// VerificationProgress returns how far the client-payment verification track
// has advanced: 0, 50 (one installment verified) or 100 (fully verified).
func (c *Commission) VerificationProgress() int {
	if !c.RequiresClientPaymentVerification {
		return 0
	}
	switch c.PaymentVerificationStatus {
	case VerificationStatusFirstVerified, VerificationStatusSecondVerified:
		return 50
	case VerificationStatusFullyVerified:
		return 100
	default:
		return 0
	}
}

// TableName specifies the table name for GORM
func (Commission) TableName() string {
	return "commissions"
}

// RoundAmount rounds a monetary amount to 2 decimals. Division amounts are
// rounded once at creation time and never recomputed afterward.
func RoundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatCommissionPeriod formats the accounting month a commission was earned
// in, e.g. FormatCommissionPeriod(3, 2025) == "2025-03".
func FormatCommissionPeriod(month, year int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// FormatPaymentPeriod formats the month and disbursement part a commission is
// paid in, e.g. FormatPaymentPeriod(3, 2025, 2) == "2025-03-P2".
func FormatPaymentPeriod(month, year, part int) string {
	return fmt.Sprintf("%04d-%02d-P%d", year, month, part)
}

var paymentPeriodPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-P(\d+)$`)

// ParsePaymentPeriodDate resolves a YYYY-MM-P{part} payment period to the
// first day of its month in UTC. ok is false when the value does not match
// the pattern; callers fall back to the current date.
func ParsePaymentPeriodDate(period string) (date time.Time, ok bool) {
	m := paymentPeriodPattern.FindStringSubmatch(period)
	if m == nil {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
}

// CommissionFilter represents filter criteria for commission queries
type CommissionFilter struct {
	ID                        *uint               `json:"id,omitempty"`
	UUID                      *uuid.UUID          `json:"uuid,omitempty"`
	EmployeeID                *uint               `json:"employee_id,omitempty"`
	SaleContractID            *uint               `json:"sale_contract_id,omitempty"`
	Type                      *CommissionType     `json:"type,omitempty"`
	PaymentStatus             *PaymentStatus      `json:"payment_status,omitempty"`
	Status                    *CommissionStatus   `json:"status,omitempty"`
	CommissionPeriod          *string             `json:"commission_period,omitempty"`
	PaymentPeriod             *string             `json:"payment_period,omitempty"`
	ParentCommissionID        *uint               `json:"parent_commission_id,omitempty"`
	IsPayable                 *bool               `json:"is_payable,omitempty"`
	PaymentVerificationStatus *VerificationStatus `json:"payment_verification_status,omitempty"`
	IsEligibleForPayment      *bool               `json:"is_eligible_for_payment,omitempty"`
	CreatedAfter              *time.Time          `json:"created_after,omitempty"`
	CreatedBefore             *time.Time          `json:"created_before,omitempty"`
	PaidAfter                 *time.Time          `json:"paid_after,omitempty"`
	PaidBefore                *time.Time          `json:"paid_before,omitempty"`
}
