package repository

import (
	"context"
	"errors"

	"github.com/novinmelk/back-office/models"
	"github.com/novinmelk/back-office/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionRepositoryImpl implements CommissionRepository interface
type CommissionRepositoryImpl struct {
	*BaseRepository[models.Commission, models.CommissionFilter]
}

// NewCommissionRepository creates a new commission repository
func NewCommissionRepository(db *gorm.DB) CommissionRepository {
	return &CommissionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Commission, models.CommissionFilter](db),
	}
}

// ByID finds a commission by ID
func (r *CommissionRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Commission, error) {
	db := r.getDB(ctx)
	var commission models.Commission
	err := db.Last(&commission, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// ByUUID finds a commission by UUID
func (r *CommissionRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Commission, error) {
	db := r.getDB(ctx)
	var commission models.Commission
	err := db.Where("uuid = ?", uuid).Last(&commission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// ByIDForUpdate finds a commission by ID holding a FOR UPDATE row lock.
// Must run inside a transaction carried by the context. Lock ordering is
// parent before children across the whole codebase.
func (r *CommissionRepositoryImpl) ByIDForUpdate(ctx context.Context, id uint) (*models.Commission, error) {
	db := r.getDB(ctx)
	var commission models.Commission
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Last(&commission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

// ChildrenOf lists the divisions of a parent commission
func (r *CommissionRepositoryImpl) ChildrenOf(ctx context.Context, parentID uint) ([]*models.Commission, error) {
	db := r.getDB(ctx)
	var divisions []*models.Commission
	err := db.Where("parent_commission_id = ?", parentID).Order("payment_part, id").Find(&divisions).Error
	if err != nil {
		return nil, err
	}
	return divisions, nil
}

// ChildrenOfForUpdate lists the divisions of a parent holding FOR UPDATE row
// locks. The caller must already hold the parent's lock.
func (r *CommissionRepositoryImpl) ChildrenOfForUpdate(ctx context.Context, parentID uint) ([]*models.Commission, error) {
	db := r.getDB(ctx)
	var divisions []*models.Commission
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("parent_commission_id = ?", parentID).
		Order("payment_part, id").
		Find(&divisions).Error
	if err != nil {
		return nil, err
	}
	return divisions, nil
}

// SumDivisionPercentage returns the running total of division percentages
// under a parent. The 100% ceiling check reads this under the parent's lock.
func (r *CommissionRepositoryImpl) SumDivisionPercentage(ctx context.Context, parentID uint) (float64, error) {
	db := r.getDB(ctx)
	var total *float64
	err := db.Model(&models.Commission{}).
		Where("parent_commission_id = ?", parentID).
		Select("SUM(payment_percentage)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// ListPayable returns the flat payable view used by payroll: leaf divisions
// and unsplit standalone commissions. Control aggregates are excluded so
// family amounts are never double counted; cancelled records never reach a
// payslip.
func (r *CommissionRepositoryImpl) ListPayable(ctx context.Context, employeeID uint, paymentPeriod string) ([]*models.Commission, error) {
	db := r.getDB(ctx)
	var commissions []*models.Commission

	query := db.Where("is_payable = ?", true).
		Where("payment_status <> ?", models.PaymentStatusCancelled)
	if employeeID != 0 {
		query = query.Where("employee_id = ?", employeeID)
	}
	if paymentPeriod != "" {
		query = query.Where("payment_period = ?", paymentPeriod)
	}

	err := query.Order("employee_id, payment_period, payment_part").Find(&commissions).Error
	if err != nil {
		return nil, err
	}
	return commissions, nil
}

// UpdateLifecycle persists only the mutable lifecycle fields of a commission.
// Amounts and split percentages are immutable after creation.
func (r *CommissionRepositoryImpl) UpdateLifecycle(ctx context.Context, commission *models.Commission) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Commission{}).
		Where("id = ?", commission.ID).
		Updates(map[string]any{
			"payment_status":              commission.PaymentStatus,
			"status":                      commission.Status,
			"payment_date":                commission.PaymentDate,
			"payment_period":              commission.PaymentPeriod,
			"payment_verification_status": commission.PaymentVerificationStatus,
			"is_eligible_for_payment":     commission.IsEligibleForPayment,
			"first_payment_verified_at":   commission.FirstPaymentVerifiedAt,
			"second_payment_verified_at":  commission.SecondPaymentVerifiedAt,
			"updated_at":                  utils.UTCNow(),
		}).Error
	if err != nil {
		return err
	}
	return nil
}

// PromoteToAggregate converts a root record into the non-payable control
// aggregate of its split family. TotalAmount keeps the full family amount
// while the record itself drops out of the payable view.
func (r *CommissionRepositoryImpl) PromoteToAggregate(ctx context.Context, commission *models.Commission) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Commission{}).
		Where("id = ?", commission.ID).
		Updates(map[string]any{
			"is_payable":   commission.IsPayable,
			"total_amount": commission.TotalAmount,
			"status":       commission.Status,
			"updated_at":   utils.UTCNow(),
		}).Error
	if err != nil {
		return err
	}
	return nil
}

// ByFilter retrieves commissions based on filter criteria
func (r *CommissionRepositoryImpl) ByFilter(ctx context.Context, filter models.CommissionFilter, orderBy string, limit, offset int) ([]*models.Commission, error) {
	db := r.getDB(ctx)
	var commissions []*models.Commission

	query := db.Model(&models.Commission{})
	query = r.applyFilter(query, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	} else {
		query = query.Order("created_at DESC")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&commissions).Error
	if err != nil {
		return nil, err
	}
	return commissions, nil
}

// Count returns the number of commissions matching the filter
func (r *CommissionRepositoryImpl) Count(ctx context.Context, filter models.CommissionFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.Commission{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any commission matching the filter exists
func (r *CommissionRepositoryImpl) Exists(ctx context.Context, filter models.CommissionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *CommissionRepositoryImpl) applyFilter(query *gorm.DB, filter models.CommissionFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.EmployeeID != nil {
		query = query.Where("employee_id = ?", *filter.EmployeeID)
	}
	if filter.SaleContractID != nil {
		query = query.Where("sale_contract_id = ?", *filter.SaleContractID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CommissionPeriod != nil {
		query = query.Where("commission_period = ?", *filter.CommissionPeriod)
	}
	if filter.PaymentPeriod != nil {
		query = query.Where("payment_period = ?", *filter.PaymentPeriod)
	}
	if filter.ParentCommissionID != nil {
		query = query.Where("parent_commission_id = ?", *filter.ParentCommissionID)
	}
	if filter.IsPayable != nil {
		query = query.Where("is_payable = ?", *filter.IsPayable)
	}
	if filter.PaymentVerificationStatus != nil {
		query = query.Where("payment_verification_status = ?", *filter.PaymentVerificationStatus)
	}
	if filter.IsEligibleForPayment != nil {
		query = query.Where("is_eligible_for_payment = ?", *filter.IsEligibleForPayment)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}
	if filter.PaidAfter != nil {
		query = query.Where("payment_date >= ?", *filter.PaidAfter)
	}
	if filter.PaidBefore != nil {
		query = query.Where("payment_date <= ?", *filter.PaidBefore)
	}
	return query
}
