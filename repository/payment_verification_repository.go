package repository

import (
	"context"
	"errors"

	"github.com/novinmelk/back-office/models"
	"github.com/novinmelk/back-office/utils"
	"gorm.io/gorm"
)

// PaymentVerificationRepositoryImpl implements PaymentVerificationRepository interface
type PaymentVerificationRepositoryImpl struct {
	*BaseRepository[models.PaymentVerification, models.PaymentVerificationFilter]
}

// NewPaymentVerificationRepository creates a new payment verification repository
func NewPaymentVerificationRepository(db *gorm.DB) PaymentVerificationRepository {
	return &PaymentVerificationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PaymentVerification, models.PaymentVerificationFilter](db),
	}
}

// ByID finds a verification record by ID
func (r *PaymentVerificationRepositoryImpl) ByID(ctx context.Context, id uint) (*models.PaymentVerification, error) {
	db := r.getDB(ctx)
	var verification models.PaymentVerification
	err := db.Last(&verification, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &verification, nil
}

// ByUUID finds a verification record by UUID
func (r *PaymentVerificationRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.PaymentVerification, error) {
	db := r.getDB(ctx)
	var verification models.PaymentVerification
	err := db.Where("uuid = ?", uuid).Last(&verification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &verification, nil
}

// ByCommissionAndInstallment finds the single verification record of one
// installment track. Uniqueness is guaranteed by the composite index.
func (r *PaymentVerificationRepositoryImpl) ByCommissionAndInstallment(ctx context.Context, commissionID uint, installment models.Installment) (*models.PaymentVerification, error) {
	db := r.getDB(ctx)
	var verification models.PaymentVerification
	err := db.Where("commission_id = ? AND installment = ?", commissionID, installment).Last(&verification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &verification, nil
}

// ByCommissionID lists all verification records of a commission
func (r *PaymentVerificationRepositoryImpl) ByCommissionID(ctx context.Context, commissionID uint) ([]*models.PaymentVerification, error) {
	db := r.getDB(ctx)
	var verifications []*models.PaymentVerification
	err := db.Where("commission_id = ?", commissionID).Order("installment").Find(&verifications).Error
	if err != nil {
		return nil, err
	}
	return verifications, nil
}

// Update persists the mutable fields of a verification record
func (r *PaymentVerificationRepositoryImpl) Update(ctx context.Context, verification *models.PaymentVerification) error {
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

	err = db.Model(&models.PaymentVerification{}).
		Where("id = ?", verification.ID).
		Updates(map[string]any{
			"status":             verification.Status,
			"client_payment_ref": verification.ClientPaymentRef,
			"verified_amount":    verification.VerifiedAmount,
			"method":             verification.Method,
			"verified_by":        verification.VerifiedBy,
			"reversed_by":        verification.ReversedBy,
			"reversal_reason":    verification.ReversalReason,
			"reversed_at":        verification.ReversedAt,
			"updated_at":         utils.UTCNow(),
		}).Error
	if err != nil {
		return err
	}
	return nil
}

// ByFilter retrieves verification records based on filter criteria
func (r *PaymentVerificationRepositoryImpl) ByFilter(ctx context.Context, filter models.PaymentVerificationFilter, orderBy string, limit, offset int) ([]*models.PaymentVerification, error) {
	db := r.getDB(ctx)
	var verifications []*models.PaymentVerification

	query := db.Model(&models.PaymentVerification{})
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

	err := query.Find(&verifications).Error
	if err != nil {
		return nil, err
	}
	return verifications, nil
}

// Count returns the number of verification records matching the filter
func (r *PaymentVerificationRepositoryImpl) Count(ctx context.Context, filter models.PaymentVerificationFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.PaymentVerification{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any verification record matching the filter exists
func (r *PaymentVerificationRepositoryImpl) Exists(ctx context.Context, filter models.PaymentVerificationFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *PaymentVerificationRepositoryImpl) applyFilter(query *gorm.DB, filter models.PaymentVerificationFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.CommissionID != nil {
		query = query.Where("commission_id = ?", *filter.CommissionID)
	}
	if filter.Installment != nil {
		query = query.Where("installment = ?", *filter.Installment)
	}
	if filter.ClientPaymentRef != nil {
		query = query.Where("client_payment_ref = ?", *filter.ClientPaymentRef)
	}
	if filter.Method != nil {
		query = query.Where("method = ?", *filter.Method)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return query
}
