package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	EmployeeID   *uint           `gorm:"index:idx_audit_employee_id" json:"employee_id,omitempty"`
	Employee     *Employee       `gorm:"foreignKey:EmployeeID;references:ID" json:"employee,omitempty"`
	CommissionID *uint           `gorm:"index:idx_audit_commission_id" json:"commission_id,omitempty"`
	Action       string          `gorm:"type:varchar(50);not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionCommissionGenerated      = "commission_generated"
	AuditActionCommissionGenerateFailed = "commission_generate_failed"
	AuditActionCommissionCancelled      = "commission_cancelled"
	AuditActionDivisionCreated          = "division_created"
	AuditActionDivisionCreateFailed     = "division_create_failed"
	AuditActionBulkPayExecuted          = "bulk_pay_executed"
	AuditActionBulkPayFailed            = "bulk_pay_failed"
	AuditActionPaymentReverted          = "payment_reverted"
	AuditActionVerificationRecorded     = "verification_recorded"
	AuditActionVerificationRejected     = "verification_rejected"
	AuditActionVerificationReversed     = "verification_reversed"
	AuditActionEligibilityUpdated       = "eligibility_updated"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	EmployeeID    *uint
	CommissionID  *uint
	Action        *string
	Success       *bool
	IPAddress     *string
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}

// IsMoneyMovement reports whether the action changed settlement state, the
// class of events reconciliation reviews first.
func (a *AuditLog) IsMoneyMovement() bool {
	moneyActions := map[string]bool{
		AuditActionBulkPayExecuted:     true,
		AuditActionBulkPayFailed:       true,
		AuditActionPaymentReverted:     true,
		AuditActionCommissionCancelled: true,
	}
	return moneyActions[a.Action]
}
