package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleContract is the finalized sale that originates a commission. Contract
// management (drafting, amendments, document storage) is an external
// collaborator; the ledger records the finalized facts it needs for rate
// calculation and audit.
type SaleContract struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	ContractNumber string `gorm:"type:varchar(40);uniqueIndex;not null" json:"contract_number"`
	EmployeeID     uint   `gorm:"not null;index" json:"employee_id"`
	PropertyRef    string `gorm:"type:varchar(64);not null" json:"property_ref"`

	Type       CommissionType `gorm:"type:varchar(30);not null" json:"type"`
	SaleAmount float64        `gorm:"type:decimal(14,2);not null" json:"sale_amount"`
	TermMonths int            `gorm:"not null" json:"term_months"`

	// PeriodSalesCount is the employee's sales count in the contract's
	// period, supplied by the sales subsystem at finalization time. Stored so
	// the commission percentage is re-derivable.
	PeriodSalesCount int `gorm:"not null" json:"period_sales_count"`

	ContractDate time.Time  `gorm:"not null;index" json:"contract_date"`
	FinalizedAt  *time.Time `json:"finalized_at"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	Employee Employee `gorm:"foreignKey:EmployeeID;constraint:OnDelete:CASCADE" json:"employee,omitempty"`
}

// BeforeCreate ensures UUID is set
func (sc *SaleContract) BeforeCreate(tx *gorm.DB) error {
	if sc.UUID == uuid.Nil {
		sc.UUID = uuid.New()
	}
	return nil
}

// IsFinalized returns true once the contract can originate a commission
func (sc *SaleContract) IsFinalized() bool {
	return sc.FinalizedAt != nil
}

// TableName specifies the table name for GORM
func (SaleContract) TableName() string {
	return "sale_contracts"
}

// SaleContractFilter represents filter criteria for sale contract queries
type SaleContractFilter struct {
	ID             *uint           `json:"id,omitempty"`
	UUID           *uuid.UUID      `json:"uuid,omitempty"`
	ContractNumber *string         `json:"contract_number,omitempty"`
	EmployeeID     *uint           `json:"employee_id,omitempty"`
	Type           *CommissionType `json:"type,omitempty"`
	CreatedAfter   *time.Time      `json:"created_after,omitempty"`
	CreatedBefore  *time.Time      `json:"created_before,omitempty"`
}
