// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/novinmelk/back-office/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CommissionRepository defines operations for commission ledger records
type CommissionRepository interface {
	Repository[models.Commission, models.CommissionFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Commission, error)
	// ByIDForUpdate fetches a record with a FOR UPDATE row lock. Callers
	// always lock the parent before its children.
	ByIDForUpdate(ctx context.Context, id uint) (*models.Commission, error)
	ChildrenOf(ctx context.Context, parentID uint) ([]*models.Commission, error)
	ChildrenOfForUpdate(ctx context.Context, parentID uint) ([]*models.Commission, error)
	SumDivisionPercentage(ctx context.Context, parentID uint) (float64, error)
	// ListPayable returns the flat payable view: leaf divisions and unsplit
	// standalone commissions, excluding control aggregates and cancelled
	// records.
	ListPayable(ctx context.Context, employeeID uint, paymentPeriod string) ([]*models.Commission, error)
	UpdateLifecycle(ctx context.Context, commission *models.Commission) error
	// PromoteToAggregate converts a root record into the non-payable control
	// aggregate of its split family on first division
	PromoteToAggregate(ctx context.Context, commission *models.Commission) error
}

// PaymentVerificationRepository defines operations for verification records
type PaymentVerificationRepository interface {
	Repository[models.PaymentVerification, models.PaymentVerificationFilter]
	ByUUID(ctx context.Context, uuid string) (*models.PaymentVerification, error)
	ByCommissionAndInstallment(ctx context.Context, commissionID uint, installment models.Installment) (*models.PaymentVerification, error)
	ByCommissionID(ctx context.Context, commissionID uint) ([]*models.PaymentVerification, error)
	Update(ctx context.Context, verification *models.PaymentVerification) error
}

// RateTierRepository defines operations for commission rate ladders
type RateTierRepository interface {
	Repository[models.RateTier, models.RateTierFilter]
	ListActive(ctx context.Context) ([]models.RateTier, error)
	// SeedDefaults inserts the compiled-in ladders when the table is empty
	SeedDefaults(ctx context.Context) error
}

// EmployeeRepository defines operations for commission beneficiaries
type EmployeeRepository interface {
	Repository[models.Employee, models.EmployeeFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Employee, error)
	ByNationalID(ctx context.Context, nationalID string) (*models.Employee, error)
}

// SaleContractRepository defines operations for finalized sale contracts
type SaleContractRepository interface {
	Repository[models.SaleContract, models.SaleContractFilter]
	ByUUID(ctx context.Context, uuid string) (*models.SaleContract, error)
	ByContractNumber(ctx context.Context, contractNumber string) (*models.SaleContract, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByCommission(ctx context.Context, commissionID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
