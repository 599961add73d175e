package repository

import (
	"context"
	"errors"

	"github.com/novinmelk/back-office/models"
	"gorm.io/gorm"
)

// SaleContractRepositoryImpl implements SaleContractRepository interface
type SaleContractRepositoryImpl struct {
	*BaseRepository[models.SaleContract, models.SaleContractFilter]
}

// NewSaleContractRepository creates a new sale contract repository
func NewSaleContractRepository(db *gorm.DB) SaleContractRepository {
	return &SaleContractRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SaleContract, models.SaleContractFilter](db),
	}
}

// ByID finds a sale contract by ID
func (r *SaleContractRepositoryImpl) ByID(ctx context.Context, id uint) (*models.SaleContract, error) {
	db := r.getDB(ctx)
	var contract models.SaleContract
	err := db.Last(&contract, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}

// ByUUID finds a sale contract by UUID
func (r *SaleContractRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.SaleContract, error) {
	db := r.getDB(ctx)
	var contract models.SaleContract
	err := db.Where("uuid = ?", uuid).Last(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}

// ByContractNumber finds a sale contract by its contract number
func (r *SaleContractRepositoryImpl) ByContractNumber(ctx context.Context, contractNumber string) (*models.SaleContract, error) {
	db := r.getDB(ctx)
	var contract models.SaleContract
	err := db.Where("contract_number = ?", contractNumber).Last(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}

// ByFilter retrieves sale contracts based on filter criteria
func (r *SaleContractRepositoryImpl) ByFilter(ctx context.Context, filter models.SaleContractFilter, orderBy string, limit, offset int) ([]*models.SaleContract, error) {
	db := r.getDB(ctx)
	var contracts []*models.SaleContract

	query := db.Model(&models.SaleContract{})
	query = r.applyFilter(query, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	} else {
		query = query.Order("contract_date DESC")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

// Count returns the number of sale contracts matching the filter
func (r *SaleContractRepositoryImpl) Count(ctx context.Context, filter models.SaleContractFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.SaleContract{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any sale contract matching the filter exists
func (r *SaleContractRepositoryImpl) Exists(ctx context.Context, filter models.SaleContractFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *SaleContractRepositoryImpl) applyFilter(query *gorm.DB, filter models.SaleContractFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.ContractNumber != nil {
		query = query.Where("contract_number = ?", *filter.ContractNumber)
	}
	if filter.EmployeeID != nil {
		query = query.Where("employee_id = ?", *filter.EmployeeID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return query
}
