package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Employee is a commission beneficiary. Full HR management lives in a
// separate subsystem; the ledger only needs a stable identity to hang
// commissions and payroll queries off.
type Employee struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	FirstName  string `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName   string `gorm:"type:varchar(100);not null" json:"last_name"`
	NationalID string `gorm:"type:varchar(20);uniqueIndex;not null" json:"national_id"`
	Position   string `gorm:"type:varchar(50);not null;default:'sales_agent'" json:"position"`
	IsActive   bool   `gorm:"not null;default:true;index" json:"is_active"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate ensures UUID is set
func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.UUID == uuid.Nil {
		e.UUID = uuid.New()
	}
	return nil
}

// FullName returns the employee's display name
func (e *Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// TableName specifies the table name for GORM
func (Employee) TableName() string {
	return "employees"
}

// EmployeeFilter represents filter criteria for employee queries
type EmployeeFilter struct {
	ID         *uint      `json:"id,omitempty"`
	UUID       *uuid.UUID `json:"uuid,omitempty"`
	NationalID *string    `json:"national_id,omitempty"`
	Position   *string    `json:"position,omitempty"`
	IsActive   *bool      `json:"is_active,omitempty"`
}
