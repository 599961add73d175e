package dto

// CreateDivisionRequest carves a percentage share of a commission out for a
// beneficiary. The first division on a record turns it into a non-payable
// control aggregate.
type CreateDivisionRequest struct {
	BeneficiaryUUID string  `json:"beneficiary_uuid" validate:"required,uuid"`
	Percentage      float64 `json:"percentage" validate:"required,gt=0,lte=100"`
	PaymentPeriod   *string `json:"payment_period" validate:"omitempty,payment_period"`
}

// CreateDivisionResponse returns the new division and the parent's updated
// allocation state
type CreateDivisionResponse struct {
	Division            CommissionDTO `json:"division"`
	Parent              CommissionDTO `json:"parent"`
	AllocatedPercentage float64       `json:"allocated_percentage"`
}

// DivisionShareDTO is one division line of a split summary
type DivisionShareDTO struct {
	UUID            string  `json:"uuid"`
	BeneficiaryUUID string  `json:"beneficiary_uuid"`
	BeneficiaryName string  `json:"beneficiary_name,omitempty"`
	Percentage      float64 `json:"percentage"`
	Amount          float64 `json:"amount"`
	PaymentStatus   string  `json:"payment_status"`
	PaymentPeriod   *string `json:"payment_period,omitempty"`
	PaymentPart     int     `json:"payment_part"`
}

// SplitPaymentSummaryResponse reports how much of a commission has been
// delegated to divisions and how much remains
type SplitPaymentSummaryResponse struct {
	CommissionUUID      string             `json:"commission_uuid"`
	OriginalAmount      float64            `json:"original_amount"`
	TotalPaidPercentage float64            `json:"total_paid_percentage"`
	TotalPaidAmount     float64            `json:"total_paid_amount"`
	RemainingPercentage float64            `json:"remaining_percentage"`
	RemainingAmount     float64            `json:"remaining_amount"`
	Divisions           []DivisionShareDTO `json:"divisions"`
}

// BulkPayRequest marks a batch of commissions paid. The optional payment
// period is stamped onto records that do not carry one yet; payment dates are
// always resolved from each record's own payment period.
type BulkPayRequest struct {
	CommissionUUIDs []string `json:"commission_uuids" validate:"required,min=1,max=500,dive,uuid"`
	PaymentPeriod   string   `json:"payment_period" validate:"omitempty,payment_period"`
}

// Bulk pay outcome constants
const (
	BulkPayOutcomePaid          = "paid"
	BulkPayOutcomeAlreadyPaid   = "already_paid"
	BulkPayOutcomeSkippedParent = "skipped_parent_paid"
	BulkPayOutcomeNotFound      = "not_found"
	BulkPayOutcomeNotEligible   = "not_eligible"
	BulkPayOutcomeCancelled     = "cancelled"
	BulkPayOutcomeFailed        = "failed"
)

// BulkPayOutcomeDTO reports what happened to one requested commission
type BulkPayOutcomeDTO struct {
	CommissionUUID string  `json:"commission_uuid"`
	Outcome        string  `json:"outcome"`
	PaymentDate    *string `json:"payment_date,omitempty"`
	Message        string  `json:"message,omitempty"`
}

// BulkPayResponse returns per-id outcomes plus the total number of records
// that transitioned to paid, cascades included
type BulkPayResponse struct {
	Outcomes          []BulkPayOutcomeDTO `json:"outcomes"`
	TransitionedCount int                 `json:"transitioned_count"`
}
