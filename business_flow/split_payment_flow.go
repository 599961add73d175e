// Package businessflow contains the core business logic and use cases for split payment workflows
package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/novinmelk/back-office/app/dto"
	"github.com/novinmelk/back-office/config"
	"github.com/novinmelk/back-office/models"
	"github.com/novinmelk/back-office/repository"
	"github.com/novinmelk/back-office/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// percentageEpsilon absorbs float accumulation noise in the 100% ceiling check
const percentageEpsilon = 1e-9

// SplitPaymentFlow handles division creation and bulk payment with
// parent/child synchronization
type SplitPaymentFlow interface {
	CreateDivision(ctx context.Context, commissionUUID string, req *dto.CreateDivisionRequest, metadata *ClientMetadata) (*dto.CreateDivisionResponse, error)
	BulkPay(ctx context.Context, req *dto.BulkPayRequest, metadata *ClientMetadata) (*dto.BulkPayResponse, error)
	SplitPaymentSummary(ctx context.Context, commissionUUID string) (*dto.SplitPaymentSummaryResponse, error)
}

// SplitPaymentFlowImpl implements the split payment business flow
type SplitPaymentFlowImpl struct {
	commissionRepo repository.CommissionRepository
	employeeRepo   repository.EmployeeRepository
	auditRepo      repository.AuditLogRepository
	db             *gorm.DB
	rc             *redis.Client
	cacheConfig    *config.CacheConfig
}

// NewSplitPaymentFlow creates a new split payment flow instance
func NewSplitPaymentFlow(
	commissionRepo repository.CommissionRepository,
	employeeRepo repository.EmployeeRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) SplitPaymentFlow {
	return &SplitPaymentFlowImpl{
		commissionRepo: commissionRepo,
		employeeRepo:   employeeRepo,
		auditRepo:      auditRepo,
		db:             db,
		rc:             rc,
		cacheConfig:    cacheConfig,
	}
}

// CreateDivision carves a percentage share of a commission out for a
// beneficiary. The running total of sibling percentages can never exceed
// 100%; the first division turns the parent into a non-payable control
// aggregate. Serialized so the ceiling check and the insert cannot
// interleave across requests.
func (f *SplitPaymentFlowImpl) CreateDivision(ctx context.Context, commissionUUID string, req *dto.CreateDivisionRequest, metadata *ClientMetadata) (*dto.CreateDivisionResponse, error) {
	lockDivisionCreate()
	defer unlockDivisionCreate()

	var parent *models.Commission
	var division *models.Commission
	var beneficiary *models.Employee
	var allocated float64

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		found, err := f.commissionRepo.ByUUID(txCtx, commissionUUID)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrCommissionNotFound
		}
		if found.IsDivision() {
			return ErrSplitOnDivision
		}

		parent, err = f.commissionRepo.ByIDForUpdate(txCtx, found.ID)
		if err != nil {
			return err
		}
		if parent == nil {
			return ErrCommissionNotFound
		}
		if parent.IsCancelled() {
			return ErrCommissionCancelled
		}
		if parent.IsPaid() {
			return ErrAlreadyPaid
		}

		beneficiary, err = f.employeeRepo.ByUUID(txCtx, req.BeneficiaryUUID)
		if err != nil {
			return err
		}
		if beneficiary == nil {
			return ErrEmployeeNotFound
		}
		if !beneficiary.IsActive {
			return ErrEmployeeInactive
		}

		allocated, err = f.commissionRepo.SumDivisionPercentage(txCtx, parent.ID)
		if err != nil {
			return err
		}
		if req.Percentage <= 0 || allocated+req.Percentage > utils.FullPaymentPercentage+percentageEpsilon {
			return ErrInvalidSplit
		}

		siblings, err := f.commissionRepo.ChildrenOf(txCtx, parent.ID)
		if err != nil {
			return err
		}

		division = &models.Commission{
			EmployeeID:     beneficiary.ID,
			SaleContractID: parent.SaleContractID,
			Type:           parent.Type,

			SaleAmount: parent.SaleAmount,
			TermMonths: parent.TermMonths,
			SalesCount: parent.SalesCount,
			Percentage: parent.Percentage,

			Amount:      models.RoundAmount(parent.Amount * req.Percentage / 100),
			TotalAmount: models.RoundAmount(parent.Amount * req.Percentage / 100),

			PaymentStatus:    models.PaymentStatusPending,
			Status:           models.CommissionStatusGenerated,
			CommissionPeriod: parent.CommissionPeriod,
			PaymentPeriod:    req.PaymentPeriod,

			ParentCommissionID: &parent.ID,
			IsPayable:          true,
			PaymentPart:        len(siblings) + 1,
			PaymentPercentage:  req.Percentage,

			RequiresClientPaymentVerification: parent.RequiresClientPaymentVerification,
			PaymentVerificationStatus:         parent.PaymentVerificationStatus,
			IsEligibleForPayment:              parent.IsEligibleForPayment,
		}
		if err := f.commissionRepo.Save(txCtx, division); err != nil {
			return err
		}

		allocated += req.Percentage

		// First division converts the root into the family's control
		// aggregate; TotalAmount keeps the full family amount.
		parent.IsPayable = false
		parent.TotalAmount = parent.Amount
		if allocated >= utils.FullPaymentPercentage-percentageEpsilon {
			parent.Status = models.CommissionStatusFullyPaid
		} else {
			parent.Status = models.CommissionStatusPartiallyPaid
		}
		return f.commissionRepo.PromoteToAggregate(txCtx, parent)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Division creation failed for commission %s: %v", commissionUUID, err)
		_ = f.createAuditLog(ctx, parent, models.AuditActionDivisionCreateFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("DIVISION_CREATION_FAILED", "Division creation failed", err)
	}

	msg := fmt.Sprintf("Division of %.2f%% (%.2f) created on commission %s for employee %d",
		req.Percentage, division.Amount, commissionUUID, beneficiary.ID)
	_ = f.createAuditLog(ctx, division, models.AuditActionDivisionCreated, msg, true, nil, metadata)
	bumpPayrollCacheGeneration(ctx, f.rc, f.cacheConfig)

	parentUUID := parent.UUID.String()
	return &dto.CreateDivisionResponse{
		Division:            ToCommissionDTO(*division, beneficiary, nil, &parentUUID),
		Parent:              ToCommissionDTO(*parent, nil, nil, nil),
		AllocatedPercentage: allocated,
	}, nil
}

// BulkPay marks a batch of commissions paid, best effort: one id's failure
// never aborts the remaining ids. Each family is settled under its own
// transaction with the parent row locked before its children. Paying a parent
// cascades down to all unpaid divisions; paying the last unpaid division
// cascades up to the parent. Re-paying a paid record is a counting no-op, so
// the operation is idempotent.
func (f *SplitPaymentFlowImpl) BulkPay(ctx context.Context, req *dto.BulkPayRequest, metadata *ClientMetadata) (*dto.BulkPayResponse, error) {
	outcomes := make([]dto.BulkPayOutcomeDTO, 0, len(req.CommissionUUIDs))
	transitioned := 0

	for _, commissionUUID := range req.CommissionUUIDs {
		var outcome dto.BulkPayOutcomeDTO
		var count int

		err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
			var err error
			outcome, count, err = f.payOne(txCtx, commissionUUID, req.PaymentPeriod)
			return err
		})
		if err != nil {
			errMsg := fmt.Sprintf("Bulk pay failed for commission %s: %v", commissionUUID, err)
			_ = f.createAuditLog(ctx, nil, models.AuditActionBulkPayFailed, errMsg, false, &errMsg, metadata)

			outcome = dto.BulkPayOutcomeDTO{
				CommissionUUID: commissionUUID,
				Outcome:        dto.BulkPayOutcomeFailed,
				Message:        err.Error(),
			}
			if IsNotEligibleForPayment(err) {
				outcome.Outcome = dto.BulkPayOutcomeNotEligible
				outcome.Message = "verification required and not satisfied"
			}
			count = 0
		}

		outcomes = append(outcomes, outcome)
		transitioned += count
	}

	msg := fmt.Sprintf("Bulk pay executed: %d requested, %d transitioned", len(req.CommissionUUIDs), transitioned)
	_ = f.createAuditLog(ctx, nil, models.AuditActionBulkPayExecuted, msg, true, nil, metadata)
	if transitioned > 0 {
		bumpPayrollCacheGeneration(ctx, f.rc, f.cacheConfig)
	}

	return &dto.BulkPayResponse{
		Outcomes:          outcomes,
		TransitionedCount: transitioned,
	}, nil
}

// payOne settles a single requested id inside the caller's transaction and
// reports its outcome plus how many records transitioned, cascades included.
func (f *SplitPaymentFlowImpl) payOne(txCtx context.Context, commissionUUID, fallbackPeriod string) (dto.BulkPayOutcomeDTO, int, error) {
	outcome := dto.BulkPayOutcomeDTO{CommissionUUID: commissionUUID}

	found, err := f.commissionRepo.ByUUID(txCtx, commissionUUID)
	if err != nil {
		return outcome, 0, err
	}
	if found == nil {
		outcome.Outcome = dto.BulkPayOutcomeNotFound
		return outcome, 0, nil
	}

	// Lock the family root first, children after, so concurrent calls on
	// overlapping families cannot deadlock or double-mark.
	rootID := found.ID
	if found.ParentCommissionID != nil {
		rootID = *found.ParentCommissionID
	}
	root, err := f.commissionRepo.ByIDForUpdate(txCtx, rootID)
	if err != nil {
		return outcome, 0, err
	}
	if root == nil {
		outcome.Outcome = dto.BulkPayOutcomeNotFound
		return outcome, 0, nil
	}
	children, err := f.commissionRepo.ChildrenOfForUpdate(txCtx, rootID)
	if err != nil {
		return outcome, 0, err
	}

	target := root
	if found.IsDivision() {
		target = nil
		for _, child := range children {
			if child.ID == found.ID {
				target = child
				break
			}
		}
		if target == nil {
			outcome.Outcome = dto.BulkPayOutcomeNotFound
			return outcome, 0, nil
		}
		// A paid parent supersedes child payment; the child is already
		// settled through it and re-paying would double-count.
		if root.IsPaid() {
			outcome.Outcome = dto.BulkPayOutcomeSkippedParent
			return outcome, 0, nil
		}
	}

	if target.IsCancelled() {
		outcome.Outcome = dto.BulkPayOutcomeCancelled
		return outcome, 0, nil
	}
	if target.IsPaid() {
		outcome.Outcome = dto.BulkPayOutcomeAlreadyPaid
		return outcome, 0, nil
	}
	if target.RequiresClientPaymentVerification && !target.IsEligibleForPayment {
		return outcome, 0, ErrNotEligibleForPayment
	}

	if fallbackPeriod != "" && target.PaymentPeriod == nil {
		target.PaymentPeriod = &fallbackPeriod
	}
	paymentDate := f.resolvePaymentDate(target.PaymentPeriod)

	target.MarkPaid(paymentDate)
	if err := f.commissionRepo.UpdateLifecycle(txCtx, target); err != nil {
		return outcome, 0, err
	}
	count := 1

	if target.IsDivision() {
		// Cascade up: the parent settles once every division is paid, with
		// the triggering division's payment date.
		allPaid := true
		for _, child := range children {
			if child.ID != target.ID && !child.IsPaid() {
				allPaid = false
				break
			}
		}
		if allPaid && !root.IsPaid() {
			if fallbackPeriod != "" && root.PaymentPeriod == nil {
				root.PaymentPeriod = &fallbackPeriod
			}
			root.MarkPaid(paymentDate)
			if err := f.commissionRepo.UpdateLifecycle(txCtx, root); err != nil {
				return outcome, 0, err
			}
			count++
		}
	} else {
		// Cascade down: a parent payment settles all divisions atomically
		// with the parent's payment date.
		for _, child := range children {
			if child.IsPaid() {
				continue
			}
			if fallbackPeriod != "" && child.PaymentPeriod == nil {
				child.PaymentPeriod = &fallbackPeriod
			}
			child.MarkPaid(paymentDate)
			if err := f.commissionRepo.UpdateLifecycle(txCtx, child); err != nil {
				return outcome, 0, err
			}
			count++
		}
	}

	outcome.Outcome = dto.BulkPayOutcomePaid
	outcome.PaymentDate = utils.ToPtr(paymentDate.Format(time.RFC3339))
	return outcome, count, nil
}

// resolvePaymentDate maps a payment period to the first day of its month;
// records without a parseable period are dated with the current time.
func (f *SplitPaymentFlowImpl) resolvePaymentDate(paymentPeriod *string) time.Time {
	if paymentPeriod != nil {
		if date, ok := models.ParsePaymentPeriodDate(*paymentPeriod); ok {
			return date
		}
	}
	return utils.UTCNow()
}

// SplitPaymentSummary reports how much of a commission has been delegated to
// divisions and how much remains unallocated
func (f *SplitPaymentFlowImpl) SplitPaymentSummary(ctx context.Context, commissionUUID string) (*dto.SplitPaymentSummaryResponse, error) {
	commission, err := f.commissionRepo.ByUUID(ctx, commissionUUID)
	if err != nil {
		return nil, err
	}
	if commission == nil {
		return nil, NewBusinessError("COMMISSION_NOT_FOUND", "Commission not found", ErrCommissionNotFound)
	}

	divisions, err := f.commissionRepo.ChildrenOf(ctx, commission.ID)
	if err != nil {
		return nil, err
	}

	employees := make(map[uint]*models.Employee)
	shares := make([]dto.DivisionShareDTO, 0, len(divisions))
	totalPercentage := 0.0
	totalAmount := 0.0
	for _, division := range divisions {
		share := dto.DivisionShareDTO{
			UUID:          division.UUID.String(),
			Percentage:    division.PaymentPercentage,
			Amount:        division.Amount,
			PaymentStatus: string(division.PaymentStatus),
			PaymentPeriod: division.PaymentPeriod,
			PaymentPart:   division.PaymentPart,
		}

		employee, ok := employees[division.EmployeeID]
		if !ok {
			employee, err = f.employeeRepo.ByID(ctx, division.EmployeeID)
			if err != nil {
				return nil, err
			}
			employees[division.EmployeeID] = employee
		}
		if employee != nil {
			share.BeneficiaryUUID = employee.UUID.String()
			share.BeneficiaryName = employee.FullName()
		}

		shares = append(shares, share)
		totalPercentage += division.PaymentPercentage
		totalAmount += division.Amount
	}

	remainingPercentage := utils.FullPaymentPercentage - totalPercentage
	if remainingPercentage < 0 {
		remainingPercentage = 0
	}

	return &dto.SplitPaymentSummaryResponse{
		CommissionUUID:      commission.UUID.String(),
		OriginalAmount:      commission.Amount,
		TotalPaidPercentage: totalPercentage,
		TotalPaidAmount:     models.RoundAmount(totalAmount),
		RemainingPercentage: remainingPercentage,
		RemainingAmount:     models.RoundAmount(commission.Amount * remainingPercentage / 100),
		Divisions:           shares,
	}, nil
}

func (f *SplitPaymentFlowImpl) createAuditLog(ctx context.Context, commission *models.Commission, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return f.auditRepo.Save(ctx, audit)
}
