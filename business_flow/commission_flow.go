// Package businessflow contains the core business logic and use cases for the commission ledger
package businessflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/novinmelk/back-office/app/dto"
	"github.com/novinmelk/back-office/config"
	"github.com/novinmelk/back-office/models"
	"github.com/novinmelk/back-office/repository"
	"github.com/novinmelk/back-office/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CommissionFlow handles commission generation and the reporting views
type CommissionFlow interface {
	GenerateFromSale(ctx context.Context, req *dto.GenerateCommissionRequest, metadata *ClientMetadata) (*dto.GenerateCommissionResponse, error)
	GetCommission(ctx context.Context, commissionUUID string) (*dto.GetCommissionResponse, error)
	ListCommissions(ctx context.Context, req *dto.ListCommissionsRequest) (*dto.ListCommissionsResponse, error)
	ListPayableForPayroll(ctx context.Context, req *dto.PayrollRequest) (*dto.PayrollResponse, error)
	CancelCommission(ctx context.Context, commissionUUID string, req *dto.CancelCommissionRequest, metadata *ClientMetadata) (*dto.CancelCommissionResponse, error)
}

// CommissionFlowImpl implements the commission business flow
type CommissionFlowImpl struct {
	commissionRepo repository.CommissionRepository
	rateTierRepo   repository.RateTierRepository
	employeeRepo   repository.EmployeeRepository
	saleRepo       repository.SaleContractRepository
	auditRepo      repository.AuditLogRepository
	db             *gorm.DB
	rc             *redis.Client
	cacheConfig    *config.CacheConfig
}

// NewCommissionFlow creates a new commission flow instance
func NewCommissionFlow(
	commissionRepo repository.CommissionRepository,
	rateTierRepo repository.RateTierRepository,
	employeeRepo repository.EmployeeRepository,
	saleRepo repository.SaleContractRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) CommissionFlow {
	return &CommissionFlowImpl{
		commissionRepo: commissionRepo,
		rateTierRepo:   rateTierRepo,
		employeeRepo:   employeeRepo,
		saleRepo:       saleRepo,
		auditRepo:      auditRepo,
		db:             db,
		rc:             rc,
		cacheConfig:    cacheConfig,
	}
}

// GenerateFromSale generates the commission of a finalized sale contract. The
// percentage is resolved from the active rate ladders, the amount rounded once
// at creation, and at most one commission ever exists per sale.
func (f *CommissionFlowImpl) GenerateFromSale(ctx context.Context, req *dto.GenerateCommissionRequest, metadata *ClientMetadata) (*dto.GenerateCommissionResponse, error) {
	var commission *models.Commission
	var employee *models.Employee
	var sale *models.SaleContract

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var err error
		sale, err = f.saleRepo.ByUUID(txCtx, req.SaleContractUUID)
		if err != nil {
			return err
		}
		if sale == nil {
			return ErrSaleNotFound
		}
		if !sale.IsFinalized() {
			return ErrSaleNotFinalized
		}

		employee, err = f.employeeRepo.ByID(txCtx, sale.EmployeeID)
		if err != nil {
			return err
		}
		if employee == nil {
			return ErrEmployeeNotFound
		}
		if !employee.IsActive {
			return ErrEmployeeInactive
		}

		exists, err := f.commissionRepo.Exists(txCtx, models.CommissionFilter{SaleContractID: &sale.ID})
		if err != nil {
			return err
		}
		if exists {
			return ErrCommissionAlreadyGenerated
		}

		tiers, err := f.rateTierRepo.ListActive(txCtx)
		if err != nil {
			return err
		}
		if len(tiers) == 0 {
			return ErrRateTableEmpty
		}
		table := models.NewRateTable(tiers)

		percentage := table.Rate(sale.PeriodSalesCount, sale.TermMonths)
		amount := models.RoundAmount(sale.SaleAmount * percentage / 100)

		commission = &models.Commission{
			EmployeeID:     employee.ID,
			SaleContractID: sale.ID,
			Type:           sale.Type,

			SaleAmount: sale.SaleAmount,
			TermMonths: sale.TermMonths,
			SalesCount: sale.PeriodSalesCount,
			Percentage: percentage,

			Amount:      amount,
			TotalAmount: amount,

			PaymentStatus:    models.PaymentStatusPending,
			Status:           models.CommissionStatusGenerated,
			CommissionPeriod: models.FormatCommissionPeriod(int(sale.ContractDate.Month()), sale.ContractDate.Year()),

			IsPayable:         true,
			PaymentPart:       1,
			PaymentPercentage: utils.FullPaymentPercentage,

			RequiresClientPaymentVerification: sale.Type.RequiresClientPaymentVerification(),
			PaymentVerificationStatus:         models.VerificationStatusPending,
		}

		return f.commissionRepo.Save(txCtx, commission)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Commission generation failed for sale %s: %v", req.SaleContractUUID, err)
		_ = f.createAuditLog(ctx, commission, models.AuditActionCommissionGenerateFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("COMMISSION_GENERATION_FAILED", "Commission generation failed", err)
	}

	msg := fmt.Sprintf("Commission generated for sale %s: %.2f (%.2f%%)", sale.ContractNumber, commission.Amount, commission.Percentage)
	_ = f.createAuditLog(ctx, commission, models.AuditActionCommissionGenerated, msg, true, nil, metadata)
	bumpPayrollCacheGeneration(ctx, f.rc, f.cacheConfig)

	return &dto.GenerateCommissionResponse{
		Commission: ToCommissionDTO(*commission, employee, sale, nil),
	}, nil
}

// GetCommission returns one ledger record with its split family attached
func (f *CommissionFlowImpl) GetCommission(ctx context.Context, commissionUUID string) (*dto.GetCommissionResponse, error) {
	commission, err := f.commissionRepo.ByUUID(ctx, commissionUUID)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, NewBusinessError("COMMISSION_NOT_FOUND", "Commission not found", ErrCommissionNotFound)
	}

	employees := make(map[uint]*models.Employee)
	sales := make(map[uint]*models.SaleContract)

	employee, err := f.employeeByID(ctx, employees, commission.EmployeeID)
	if err != nil {
		return nil, err
	}
	sale, err := f.saleByID(ctx, sales, commission.SaleContractID)
	if err != nil {
		return nil, err
	}

	var parentUUID *string
	if commission.ParentCommissionID != nil {
		parent, err := f.commissionRepo.ByID(ctx, *commission.ParentCommissionID)
		if err != nil {
			return nil, err
		}
		if parent != nil {
			parentUUID = utils.ToPtr(parent.UUID.String())
		}
	}

	divisions, err := f.commissionRepo.ChildrenOf(ctx, commission.ID)
	if err != nil {
		return nil, err
	}

	selfUUID := commission.UUID.String()
	divisionDTOs := make([]dto.CommissionDTO, 0, len(divisions))
	for _, division := range divisions {
		divEmployee, err := f.employeeByID(ctx, employees, division.EmployeeID)
		if err != nil {
			return nil, err
		}
		divisionDTOs = append(divisionDTOs, ToCommissionDTO(*division, divEmployee, sale, &selfUUID))
	}

	// The split total always covers the whole family: for a division that is
	// the sum of its siblings under the same parent, itself included.
	totalSplit := 0.0
	if commission.IsDivision() {
		siblings, err := f.commissionRepo.ChildrenOf(ctx, *commission.ParentCommissionID)
		if err != nil {
			return nil, err
		}
		for _, sibling := range siblings {
			totalSplit += sibling.Amount
		}
	} else {
		for _, division := range divisions {
			totalSplit += division.Amount
		}
		if commission.IsPayable {
			totalSplit += commission.Amount
		}
	}

	return &dto.GetCommissionResponse{
		Commission:       ToCommissionDTO(*commission, employee, sale, parentUUID),
		Divisions:        divisionDTOs,
		TotalSplitAmount: models.RoundAmount(totalSplit),
	}, nil
}

// ListCommissions returns one page of the reporting view
func (f *CommissionFlowImpl) ListCommissions(ctx context.Context, req *dto.ListCommissionsRequest) (*dto.ListCommissionsResponse, error) {
	filter := models.CommissionFilter{}

	if req.EmployeeUUID != "" {
		employee, err := f.employeeRepo.ByUUID(ctx, req.EmployeeUUID)
		if err != nil {
			return nil, err
		}
		if employee == nil {
			return nil, NewBusinessError("EMPLOYEE_NOT_FOUND", "Employee not found", ErrEmployeeNotFound)
		}
		filter.EmployeeID = &employee.ID
	}
	if req.Type != "" {
		filter.Type = utils.ToPtr(models.CommissionType(req.Type))
	}
	if req.PaymentStatus != "" {
		filter.PaymentStatus = utils.ToPtr(models.PaymentStatus(req.PaymentStatus))
	}
	if req.Status != "" {
		filter.Status = utils.ToPtr(models.CommissionStatus(req.Status))
	}
	if req.CommissionPeriod != "" {
		filter.CommissionPeriod = &req.CommissionPeriod
	}
	if req.PaymentPeriod != "" {
		filter.PaymentPeriod = &req.PaymentPeriod
	}
	if req.VerificationStatus != "" {
		filter.PaymentVerificationStatus = utils.ToPtr(models.VerificationStatus(req.VerificationStatus))
	}
	if req.OnlyPayable != nil {
		filter.IsPayable = req.OnlyPayable
	}

	total, err := f.commissionRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	commissions, err := f.commissionRepo.ByFilter(ctx, filter, "", req.Limit(), req.Offset())
	if err != nil {
		return nil, err
	}

	employees := make(map[uint]*models.Employee)
	sales := make(map[uint]*models.SaleContract)

	items := make([]dto.CommissionDTO, 0, len(commissions))
	for _, commission := range commissions {
		employee, err := f.employeeByID(ctx, employees, commission.EmployeeID)
		if err != nil {
			return nil, err
		}
		sale, err := f.saleByID(ctx, sales, commission.SaleContractID)
		if err != nil {
			return nil, err
		}
		items = append(items, ToCommissionDTO(*commission, employee, sale, nil))
	}

	page := req.Page
	if page <= 0 {
		page = 1
	}
	return &dto.ListCommissionsResponse{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: req.Limit(),
	}, nil
}

// ListPayableForPayroll returns the flat payable view: leaf divisions and
// unsplit standalone commissions, never control aggregates, so the sum of the
// rows is what payroll actually disburses.
func (f *CommissionFlowImpl) ListPayableForPayroll(ctx context.Context, req *dto.PayrollRequest) (*dto.PayrollResponse, error) {
	var cacheKey string
	if cacheUsable(f.rc, f.cacheConfig) {
		gen := payrollCacheGeneration(ctx, f.rc, f.cacheConfig)
		cacheKey = fmt.Sprintf("%s:%s:%s:%s", redisKey(*f.cacheConfig, utils.PayrollCacheKey), gen, req.EmployeeUUID, req.PaymentPeriod)
		if cached, err := f.rc.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.PayrollResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return &resp, nil
			}
		}
	}

	var employeeID uint
	if req.EmployeeUUID != "" {
		employee, err := f.employeeRepo.ByUUID(ctx, req.EmployeeUUID)
		if err != nil {
			return nil, err
		}
		if employee == nil {
			return nil, NewBusinessError("EMPLOYEE_NOT_FOUND", "Employee not found", ErrEmployeeNotFound)
		}
		employeeID = employee.ID
	}

	commissions, err := f.commissionRepo.ListPayable(ctx, employeeID, req.PaymentPeriod)
	if err != nil {
		return nil, err
	}

	employees := make(map[uint]*models.Employee)
	rows := make([]dto.PayrollRowDTO, 0, len(commissions))
	totalAmount := 0.0
	for _, commission := range commissions {
		employee, err := f.employeeByID(ctx, employees, commission.EmployeeID)
		if err != nil {
			return nil, err
		}

		row := dto.PayrollRowDTO{
			CommissionUUID:       commission.UUID.String(),
			Type:                 string(commission.Type),
			Amount:               commission.Amount,
			PaymentStatus:        string(commission.PaymentStatus),
			PaymentPeriod:        commission.PaymentPeriod,
			PaymentPart:          commission.PaymentPart,
			IsEligibleForPayment: commission.IsEligibleForPayment,
		}
		if employee != nil {
			row.EmployeeUUID = employee.UUID.String()
			row.EmployeeName = employee.FullName()
		}
		rows = append(rows, row)
		totalAmount += commission.Amount
	}

	resp := &dto.PayrollResponse{
		Rows:        rows,
		TotalAmount: models.RoundAmount(totalAmount),
	}

	if cacheKey != "" {
		if bytes, err := json.Marshal(resp); err == nil {
			_ = f.rc.Set(ctx, cacheKey, bytes, f.cacheConfig.DefaultTTL).Err()
		}
	}

	return resp, nil
}

// CancelCommission cancels an unpaid, unverified commission and its unpaid
// divisions. Paid or partially verified records are immutable.
func (f *CommissionFlowImpl) CancelCommission(ctx context.Context, commissionUUID string, req *dto.CancelCommissionRequest, metadata *ClientMetadata) (*dto.CancelCommissionResponse, error) {
	var commission *models.Commission

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		found, err := f.commissionRepo.ByUUID(txCtx, commissionUUID)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrCommissionNotFound
		}

		// Parent lock first, children after
		commission, err = f.commissionRepo.ByIDForUpdate(txCtx, found.ID)
		if err != nil {
			return err
		}
		if commission == nil {
			return ErrCommissionNotFound
		}

		if commission.IsCancelled() {
			return ErrCommissionCancelled
		}
		if commission.IsPaid() {
			return ErrCannotDeleteCommission
		}
		if commission.FirstPaymentVerifiedAt != nil || commission.SecondPaymentVerifiedAt != nil {
			return ErrCannotDeleteCommission
		}

		divisions, err := f.commissionRepo.ChildrenOfForUpdate(txCtx, commission.ID)
		if err != nil {
			return err
		}
		for _, division := range divisions {
			if division.IsPaid() {
				return ErrCannotDeleteCommission
			}
		}

		for _, division := range divisions {
			division.PaymentStatus = models.PaymentStatusCancelled
			if err := f.commissionRepo.UpdateLifecycle(txCtx, division); err != nil {
				return err
			}
		}

		commission.PaymentStatus = models.PaymentStatusCancelled
		return f.commissionRepo.UpdateLifecycle(txCtx, commission)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Commission cancellation failed for %s: %v", commissionUUID, err)
		_ = f.createAuditLog(ctx, commission, models.AuditActionCommissionCancelled, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("COMMISSION_CANCELLATION_FAILED", "Commission cancellation failed", err)
	}

	description := fmt.Sprintf("Commission %s cancelled", commissionUUID)
	if req != nil && req.Reason != "" {
		description = fmt.Sprintf("Commission %s cancelled: %s", commissionUUID, req.Reason)
	}
	_ = f.createAuditLog(ctx, commission, models.AuditActionCommissionCancelled, description, true, nil, metadata)
	bumpPayrollCacheGeneration(ctx, f.rc, f.cacheConfig)

	return &dto.CancelCommissionResponse{
		Commission: ToCommissionDTO(*commission, nil, nil, nil),
	}, nil
}

func (f *CommissionFlowImpl) employeeByID(ctx context.Context, cache map[uint]*models.Employee, id uint) (*models.Employee, error) {
	if employee, ok := cache[id]; ok {
		return employee, nil
	}
	employee, err := f.employeeRepo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = employee
	return employee, nil
}

func (f *CommissionFlowImpl) saleByID(ctx context.Context, cache map[uint]*models.SaleContract, id uint) (*models.SaleContract, error) {
	if sale, ok := cache[id]; ok {
		return sale, nil
	}
	sale, err := f.saleRepo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = sale
	return sale, nil
}

func (f *CommissionFlowImpl) createAuditLog(ctx context.Context, commission *models.Commission, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var employeeID *uint
	var commissionID *uint
	if commission != nil {
		employeeID = &commission.EmployeeID
		commissionID = &commission.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		EmployeeID:   employeeID,
		CommissionID: commissionID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	// Extract request ID from context if available
	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return f.auditRepo.Save(ctx, audit)
}
