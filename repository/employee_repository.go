package repository

import (
	"context"
	"errors"

	"github.com/novinmelk/back-office/models"
	"gorm.io/gorm"
)

// EmployeeRepositoryImpl implements EmployeeRepository interface
type EmployeeRepositoryImpl struct {
	*BaseRepository[models.Employee, models.EmployeeFilter]
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &EmployeeRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Employee, models.EmployeeFilter](db),
	}
}

// ByID finds an employee by ID
func (r *EmployeeRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Employee, error) {
	db := r.getDB(ctx)
	var employee models.Employee
	err := db.Last(&employee, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &employee, nil
}

// ByUUID finds an employee by UUID
func (r *EmployeeRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Employee, error) {
	db := r.getDB(ctx)
	var employee models.Employee
	err := db.Where("uuid = ?", uuid).Last(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &employee, nil
}

// ByNationalID finds an employee by national ID
func (r *EmployeeRepositoryImpl) ByNationalID(ctx context.Context, nationalID string) (*models.Employee, error) {
	db := r.getDB(ctx)
	var employee models.Employee
	err := db.Where("national_id = ?", nationalID).Last(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &employee, nil
}

// ByFilter retrieves employees based on filter criteria
func (r *EmployeeRepositoryImpl) ByFilter(ctx context.Context, filter models.EmployeeFilter, orderBy string, limit, offset int) ([]*models.Employee, error) {
	db := r.getDB(ctx)
	var employees []*models.Employee

	query := db.Model(&models.Employee{})
	query = r.applyFilter(query, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	} else {
		query = query.Order("last_name, first_name")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&employees).Error
	if err != nil {
		return nil, err
	}
	return employees, nil
}

// Count returns the number of employees matching the filter
func (r *EmployeeRepositoryImpl) Count(ctx context.Context, filter models.EmployeeFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.Employee{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any employee matching the filter exists
func (r *EmployeeRepositoryImpl) Exists(ctx context.Context, filter models.EmployeeFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *EmployeeRepositoryImpl) applyFilter(query *gorm.DB, filter models.EmployeeFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.NationalID != nil {
		query = query.Where("national_id = ?", *filter.NationalID)
	}
	if filter.Position != nil {
		query = query.Where("position = ?", *filter.Position)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}
