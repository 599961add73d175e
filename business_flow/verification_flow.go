// Package businessflow contains the core business logic and use cases for verification workflows
package businessflow

import (
	"context"
	"fmt"

	"github.com/novinmelk/back-office/app/dto"
	"github.com/novinmelk/back-office/config"
	"github.com/novinmelk/back-office/models"
	"github.com/novinmelk/back-office/repository"
	"github.com/novinmelk/back-office/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// VerificationFlow ingests client-payment confirmation events and gates
// payability. Eligibility itself is decided by the external reconciliation
// process; the ledger only records its verdicts.
type VerificationFlow interface {
	RecordVerification(ctx context.Context, req *dto.RecordVerificationRequest, metadata *ClientMetadata) (*dto.RecordVerificationResponse, error)
	ReverseVerification(ctx context.Context, req *dto.ReverseVerificationRequest, metadata *ClientMetadata) (*dto.ReverseVerificationResponse, error)
	SetEligibility(ctx context.Context, commissionUUID string, req *dto.SetEligibilityRequest, metadata *ClientMetadata) (*dto.SetEligibilityResponse, error)
}

// VerificationFlowImpl implements the verification business flow
type VerificationFlowImpl struct {
	commissionRepo   repository.CommissionRepository
	verificationRepo repository.PaymentVerificationRepository
	auditRepo        repository.AuditLogRepository
	db               *gorm.DB
	rc               *redis.Client
	cacheConfig      *config.CacheConfig
}

// NewVerificationFlow creates a new verification flow instance
func NewVerificationFlow(
	commissionRepo repository.CommissionRepository,
	verificationRepo repository.PaymentVerificationRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) VerificationFlow {
	return &VerificationFlowImpl{
		commissionRepo:   commissionRepo,
		verificationRepo: verificationRepo,
		auditRepo:        auditRepo,
		db:               db,
		rc:               rc,
		cacheConfig:      cacheConfig,
	}
}

// RecordVerification records that an external client payment installment was
// confirmed or failed to confirm. At most one live record exists per
// (commission, installment); a reversed record may be superseded by a new
// confirmation.
func (f *VerificationFlowImpl) RecordVerification(ctx context.Context, req *dto.RecordVerificationRequest, metadata *ClientMetadata) (*dto.RecordVerificationResponse, error) {
	var commission *models.Commission
	var verification *models.PaymentVerification

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		found, err := f.commissionRepo.ByUUID(txCtx, req.CommissionUUID)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrCommissionNotFound
		}

		commission, err = f.commissionRepo.ByIDForUpdate(txCtx, found.ID)
		if err != nil {
			return err
		}
		if commission == nil {
			return ErrCommissionNotFound
		}
		if !commission.RequiresClientPaymentVerification {
			return ErrVerificationNotRequired
		}

		installment := models.Installment(req.Installment)
		if !installment.IsValid() {
			return ErrInvalidInstallment
		}

		method := models.VerificationMethod(req.Method)
		if method == models.VerificationMethodManual && req.VerifiedBy == nil {
			return ErrVerifyingActorRequired
		}

		status := models.VerificationRecordStatusVerified
		if req.Result == "failed" {
			status = models.VerificationRecordStatusFailed
		}

		existing, err := f.verificationRepo.ByCommissionAndInstallment(txCtx, commission.ID, installment)
		if err != nil {
			return err
		}
		if existing != nil && !existing.IsReversed() {
			return ErrVerificationAlreadyRecorded
		}

		if existing != nil {
			// A reversed record is superseded in place; the uniqueness
			// constraint rules out a second row for the installment.
			existing.ClientPaymentRef = req.ClientPaymentRef
			existing.VerifiedAmount = req.VerifiedAmount
			existing.Method = method
			existing.Status = status
			existing.VerifiedBy = req.VerifiedBy
			existing.ReversedBy = nil
			existing.ReversalReason = nil
			existing.ReversedAt = nil
			if err := f.verificationRepo.Update(txCtx, existing); err != nil {
				return err
			}
			verification = existing
		} else {
			verification = &models.PaymentVerification{
				CommissionID:     commission.ID,
				Installment:      installment,
				ClientPaymentRef: req.ClientPaymentRef,
				VerifiedAmount:   req.VerifiedAmount,
				Method:           method,
				Status:           status,
				VerifiedBy:       req.VerifiedBy,
			}
			if err := f.verificationRepo.Save(txCtx, verification); err != nil {
				return err
			}
		}

		if status == models.VerificationRecordStatusVerified {
			now := utils.UTCNow()
			if installment == models.InstallmentFirst {
				commission.FirstPaymentVerifiedAt = &now
			} else {
				commission.SecondPaymentVerifiedAt = &now
			}
			commission.PaymentVerificationStatus = verificationTrackFor(commission)
		} else {
			commission.PaymentVerificationStatus = models.VerificationStatusFailed
		}

		return f.commissionRepo.UpdateLifecycle(txCtx, commission)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Verification ingestion failed for commission %s (%s): %v", req.CommissionUUID, req.Installment, err)
		_ = f.createAuditLog(ctx, commission, models.AuditActionVerificationRecorded, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("VERIFICATION_INGESTION_FAILED", "Verification ingestion failed", err)
	}

	action := models.AuditActionVerificationRecorded
	msg := fmt.Sprintf("Installment %s verified for commission %s (ref %s)", req.Installment, req.CommissionUUID, req.ClientPaymentRef)
	if verification.Status == models.VerificationRecordStatusFailed {
		action = models.AuditActionVerificationRejected
		msg = fmt.Sprintf("Installment %s verification failed for commission %s (ref %s)", req.Installment, req.CommissionUUID, req.ClientPaymentRef)
	}
	_ = f.createAuditLog(ctx, commission, action, msg, true, nil, metadata)

	return &dto.RecordVerificationResponse{
		Verification:         ToVerificationDTO(*verification, commission.UUID.String()),
		VerificationStatus:   string(commission.PaymentVerificationStatus),
		VerificationProgress: commission.VerificationProgress(),
	}, nil
}

// ReverseVerification undoes a previously verified installment. The
// commission's track is downgraded, its eligibility gate closed, and a paid
// commission is reverted to pending. This is the only path that may undo a
// paid status.
func (f *VerificationFlowImpl) ReverseVerification(ctx context.Context, req *dto.ReverseVerificationRequest, metadata *ClientMetadata) (*dto.ReverseVerificationResponse, error) {
	var commission *models.Commission
	var verification *models.PaymentVerification
	paymentReverted := false

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		found, err := f.commissionRepo.ByUUID(txCtx, req.CommissionUUID)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrCommissionNotFound
		}

		// Lock the family root first so a paid parent can be reverted
		// together with its division without breaking lock ordering.
		rootID := found.ID
		if found.ParentCommissionID != nil {
			rootID = *found.ParentCommissionID
		}
		root, err := f.commissionRepo.ByIDForUpdate(txCtx, rootID)
		if err != nil {
			return err
		}
		if root == nil {
			return ErrCommissionNotFound
		}

		commission = root
		if found.ParentCommissionID != nil {
			children, err := f.commissionRepo.ChildrenOfForUpdate(txCtx, rootID)
			if err != nil {
				return err
			}
			commission = nil
			for _, child := range children {
				if child.ID == found.ID {
					commission = child
					break
				}
			}
			if commission == nil {
				return ErrCommissionNotFound
			}
		}

		installment := models.Installment(req.Installment)
		if !installment.IsValid() {
			return ErrInvalidInstallment
		}

		verification, err = f.verificationRepo.ByCommissionAndInstallment(txCtx, commission.ID, installment)
		if err != nil {
			return err
		}
		if verification == nil {
			return ErrVerificationNotFound
		}
		if verification.Status != models.VerificationRecordStatusVerified {
			return ErrVerificationNotReversible
		}

		verification.Status = models.VerificationRecordStatusReversed
		verification.ReversedBy = &req.ReversedBy
		verification.ReversalReason = &req.Reason
		verification.ReversedAt = utils.UTCNowPtr()
		if err := f.verificationRepo.Update(txCtx, verification); err != nil {
			return err
		}

		if installment == models.InstallmentFirst {
			commission.FirstPaymentVerifiedAt = nil
		} else {
			commission.SecondPaymentVerifiedAt = nil
		}
		commission.PaymentVerificationStatus = verificationTrackFor(commission)
		commission.IsEligibleForPayment = false

		if commission.IsPaid() {
			paymentReverted = true
			commission.PaymentStatus = models.PaymentStatusPending
			commission.PaymentDate = nil
			if err := f.recomputeAllocationStatus(txCtx, commission); err != nil {
				return err
			}
		}
		if err := f.commissionRepo.UpdateLifecycle(txCtx, commission); err != nil {
			return err
		}

		// A paid parent implies all divisions are paid; reverting a division
		// breaks that, so the parent goes back to pending as well.
		if commission.IsDivision() && root.IsPaid() {
			paymentReverted = true
			root.PaymentStatus = models.PaymentStatusPending
			root.PaymentDate = nil
			if err := f.recomputeAllocationStatus(txCtx, root); err != nil {
				return err
			}
			if err := f.commissionRepo.UpdateLifecycle(txCtx, root); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Verification reversal failed for commission %s (%s): %v", req.CommissionUUID, req.Installment, err)
		_ = f.createAuditLog(ctx, commission, models.AuditActionVerificationReversed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("VERIFICATION_REVERSAL_FAILED", "Verification reversal failed", err)
	}

	msg := fmt.Sprintf("Installment %s reversed for commission %s by %s: %s", req.Installment, req.CommissionUUID, req.ReversedBy, req.Reason)
	_ = f.createAuditLog(ctx, commission, models.AuditActionVerificationReversed, msg, true, nil, metadata)
	if paymentReverted {
		revertMsg := fmt.Sprintf("Payment reverted to pending for commission %s after verification reversal", req.CommissionUUID)
		_ = f.createAuditLog(ctx, commission, models.AuditActionPaymentReverted, revertMsg, true, nil, metadata)
	}
	bumpPayrollCacheGeneration(ctx, f.rc, f.cacheConfig)

	return &dto.ReverseVerificationResponse{
		Verification:       ToVerificationDTO(*verification, commission.UUID.String()),
		VerificationStatus: string(commission.PaymentVerificationStatus),
		PaymentReverted:    paymentReverted,
	}, nil
}

// SetEligibility records the external reconciliation subsystem's payout
// eligibility decision. The ledger never derives this flag itself.
func (f *VerificationFlowImpl) SetEligibility(ctx context.Context, commissionUUID string, req *dto.SetEligibilityRequest, metadata *ClientMetadata) (*dto.SetEligibilityResponse, error) {
	var commission *models.Commission

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		found, err := f.commissionRepo.ByUUID(txCtx, commissionUUID)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrCommissionNotFound
		}

		commission, err = f.commissionRepo.ByIDForUpdate(txCtx, found.ID)
		if err != nil {
			return err
		}
		if commission == nil {
			return ErrCommissionNotFound
		}
		if !commission.RequiresClientPaymentVerification {
			return ErrVerificationNotRequired
		}

		commission.IsEligibleForPayment = utils.IsTrue(req.IsEligible)
		return f.commissionRepo.UpdateLifecycle(txCtx, commission)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Eligibility update failed for commission %s: %v", commissionUUID, err)
		_ = f.createAuditLog(ctx, commission, models.AuditActionEligibilityUpdated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("ELIGIBILITY_UPDATE_FAILED", "Eligibility update failed", err)
	}

	source := "external reconciliation"
	if req.Source != "" {
		source = req.Source
	}
	msg := fmt.Sprintf("Eligibility of commission %s set to %t by %s", commissionUUID, commission.IsEligibleForPayment, source)
	_ = f.createAuditLog(ctx, commission, models.AuditActionEligibilityUpdated, msg, true, nil, metadata)
	bumpPayrollCacheGeneration(ctx, f.rc, f.cacheConfig)

	return &dto.SetEligibilityResponse{
		CommissionUUID:       commission.UUID.String(),
		IsEligibleForPayment: commission.IsEligibleForPayment,
	}, nil
}

// verificationTrackFor derives the commission's verification track from its
// installment stamps
func verificationTrackFor(c *models.Commission) models.VerificationStatus {
	switch {
	case c.FirstPaymentVerifiedAt != nil && c.SecondPaymentVerifiedAt != nil:
		return models.VerificationStatusFullyVerified
	case c.FirstPaymentVerifiedAt != nil:
		return models.VerificationStatusFirstVerified
	case c.SecondPaymentVerifiedAt != nil:
		return models.VerificationStatusSecondVerified
	default:
		return models.VerificationStatusPending
	}
}

// recomputeAllocationStatus resets the aggregate status of a record whose
// paid status was reverted: allocation progress for a split root, generated
// for everything else.
func (f *VerificationFlowImpl) recomputeAllocationStatus(ctx context.Context, commission *models.Commission) error {
	if commission.IsDivision() {
		commission.Status = models.CommissionStatusGenerated
		return nil
	}

	allocated, err := f.commissionRepo.SumDivisionPercentage(ctx, commission.ID)
	if err != nil {
		return err
	}
	switch {
	case allocated >= utils.FullPaymentPercentage-percentageEpsilon:
		commission.Status = models.CommissionStatusFullyPaid
	case allocated > 0:
		commission.Status = models.CommissionStatusPartiallyPaid
	default:
		commission.Status = models.CommissionStatusGenerated
	}
	return nil
}

func (f *VerificationFlowImpl) createAuditLog(ctx context.Context, commission *models.Commission, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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
