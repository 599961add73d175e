package repository

import (
	"context"
	"errors"

	"github.com/novinmelk/back-office/models"
	"gorm.io/gorm"
)

// RateTierRepositoryImpl implements RateTierRepository interface
type RateTierRepositoryImpl struct {
	*BaseRepository[models.RateTier, models.RateTierFilter]
}

// NewRateTierRepository creates a new rate tier repository
func NewRateTierRepository(db *gorm.DB) RateTierRepository {
	return &RateTierRepositoryImpl{
		BaseRepository: NewBaseRepository[models.RateTier, models.RateTierFilter](db),
	}
}

// ByID finds a rate tier by ID
func (r *RateTierRepositoryImpl) ByID(ctx context.Context, id uint) (*models.RateTier, error) {
	db := r.getDB(ctx)
	var tier models.RateTier
	err := db.Last(&tier, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

// ListActive lists the active rate ladder rungs of both term classes
func (r *RateTierRepositoryImpl) ListActive(ctx context.Context) ([]models.RateTier, error) {
	db := r.getDB(ctx)
	var tiers []models.RateTier
	err := db.Where("is_active = ?", true).
		Order("term_class, min_sales_count DESC").
		Find(&tiers).Error
	if err != nil {
		return nil, err
	}
	return tiers, nil
}

// SeedDefaults inserts the compiled-in ladders when the table is empty
func (r *RateTierRepositoryImpl) SeedDefaults(ctx context.Context) error {
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

	var count int64
	if err = db.Model(&models.RateTier{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tiers := models.DefaultRateTiers()
	err = db.Create(&tiers).Error
	if err != nil {
		return err
	}
	return nil
}

// ByFilter retrieves rate tiers based on filter criteria
func (r *RateTierRepositoryImpl) ByFilter(ctx context.Context, filter models.RateTierFilter, orderBy string, limit, offset int) ([]*models.RateTier, error) {
	db := r.getDB(ctx)
	var tiers []*models.RateTier

	query := db.Model(&models.RateTier{})
	query = r.applyFilter(query, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	} else {
		query = query.Order("term_class, min_sales_count DESC")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&tiers).Error
	if err != nil {
		return nil, err
	}
	return tiers, nil
}

// Count returns the number of rate tiers matching the filter
func (r *RateTierRepositoryImpl) Count(ctx context.Context, filter models.RateTierFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.RateTier{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any rate tier matching the filter exists
func (r *RateTierRepositoryImpl) Exists(ctx context.Context, filter models.RateTierFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *RateTierRepositoryImpl) applyFilter(query *gorm.DB, filter models.RateTierFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.TermClass != nil {
		query = query.Where("term_class = ?", *filter.TermClass)
	}
	if filter.MinSalesCount != nil {
		query = query.Where("min_sales_count = ?", *filter.MinSalesCount)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}
