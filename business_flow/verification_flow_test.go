package businessflow_test

import (
	"testing"

	"github.com/novinmelk/back-office/app/dto"
	businessflow "github.com/novinmelk/back-office/business_flow"
	"github.com/novinmelk/back-office/models"
	"github.com/novinmelk/back-office/repository"
	testingutil "github.com/novinmelk/back-office/testing"
	"github.com/novinmelk/back-office/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerificationFlow(testDB *testingutil.TestDB) businessflow.VerificationFlow {
	return businessflow.NewVerificationFlow(
		repository.NewCommissionRepository(testDB.DB),
		repository.NewPaymentVerificationRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
		nil,
		nil,
	)
}

func recordVerificationRequest(commissionUUID, installment string) *dto.RecordVerificationRequest {
	return &dto.RecordVerificationRequest{
		CommissionUUID:   commissionUUID,
		Installment:      installment,
		ClientPaymentRef: "bank-ref-" + installment,
		VerifiedAmount:   10000,
		Result:           "verified",
		Method:           "automatic",
	}
}

func TestRecordVerification(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		commissionRepo := repository.NewCommissionRepository(testDB.DB)
		flow := newVerificationFlow(testDB)
		ctx := testingutil.CreateTestContext()

		employee, err := fixtures.CreateTestEmployee()
		require.NoError(t, err)

		t.Run("FirstInstallmentAdvancesTrack", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeInstallmentSale, 100000, 12, 5)
			require.NoError(t, err)
			commission, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)

			result, err := flow.RecordVerification(ctx, recordVerificationRequest(commission.UUID.String(), "first"), testMetadata())
			require.NoError(t, err)

			assert.Equal(t, string(models.VerificationStatusFirstVerified), result.VerificationStatus)
			assert.Equal(t, 50, result.VerificationProgress)
			assert.Equal(t, "first", result.Verification.Installment)
			assert.Equal(t, string(models.VerificationRecordStatusVerified), result.Verification.Status)

			stored, err := commissionRepo.ByID(ctx, commission.ID)
			require.NoError(t, err)
			assert.NotNil(t, stored.FirstPaymentVerifiedAt)
			assert.Nil(t, stored.SecondPaymentVerifiedAt)
		})

		t.Run("BothInstallmentsFullyVerify", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypePresale, 100000, 12, 5)
			require.NoError(t, err)
			commission, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)

			_, err = flow.RecordVerification(ctx, recordVerificationRequest(commission.UUID.String(), "first"), testMetadata())
			require.NoError(t, err)

			result, err := flow.RecordVerification(ctx, recordVerificationRequest(commission.UUID.String(), "second"), testMetadata())
			require.NoError(t, err)

			assert.Equal(t, string(models.VerificationStatusFullyVerified), result.VerificationStatus)
			assert.Equal(t, 100, result.VerificationProgress)
		})

		t.Run("RejectsDuplicateInstallment", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeInstallmentSale, 100000, 12, 5)
			require.NoError(t, err)
			commission, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)

			_, err = flow.RecordVerification(ctx, recordVerificationRequest(commission.UUID.String(), "first"), testMetadata())
			require.NoError(t, err)

			_, err = flow.RecordVerification(ctx, recordVerificationRequest(commission.UUID.String(), "first"), testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsVerificationAlreadyRecorded(err))
		})

		t.Run("FailedResultMarksTrackFailed", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeInstallmentSale, 100000, 12, 5)
			require.NoError(t, err)
			commission, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)

			req := recordVerificationRequest(commission.UUID.String(), "first")
			req.Result = "failed"

			result, err := flow.RecordVerification(ctx, req, testMetadata())
			require.NoError(t, err)

			assert.Equal(t, string(models.VerificationStatusFailed), result.VerificationStatus)
			assert.Equal(t, 0, result.VerificationProgress)
			assert.Equal(t, string(models.VerificationRecordStatusFailed), result.Verification.Status)

			stored, err := commissionRepo.ByID(ctx, commission.ID)
			require.NoError(t, err)
			assert.Nil(t, stored.FirstPaymentVerifiedAt)
			assert.False(t, stored.IsEligibleForPayment)
		})

		t.Run("RejectsCashSale", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 5)
			require.NoError(t, err)
			commission, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)

			_, err = flow.RecordVerification(ctx, recordVerificationRequest(commission.UUID.String(), "first"), testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsVerificationNotRequired(err))
		})

		t.Run("ManualMethodNeedsVerifyingActor", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeInstallmentSale, 100000, 12, 5)
			require.NoError(t, err)
			commission, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)

			req := recordVerificationRequest(commission.UUID.String(), "first")
			req.Method = "manual"

			_, err = flow.RecordVerification(ctx, req, testMetadata())
			require.Error(t, err)
			assert.ErrorIs(t, err, businessflow.ErrVerifyingActorRequired)

			req.VerifiedBy = utils.ToPtr("finance.admin")
			result, err := flow.RecordVerification(ctx, req, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, "manual", result.Verification.Method)
			require.NotNil(t, result.Verification.VerifiedBy)
			assert.Equal(t, "finance.admin", *result.Verification.VerifiedBy)
		})

		t.Run("SupersedesReversedRecord", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeInstallmentSale, 100000, 12, 5)
			require.NoError(t, err)
			commission, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)

			_, err = flow.RecordVerification(ctx, recordVerificationRequest(commission.UUID.String(), "first"), testMetadata())
			require.NoError(t, err)

			_, err = flow.ReverseVerification(ctx, &dto.ReverseVerificationRequest{
				CommissionUUID: commission.UUID.String(),
				Installment:    "first",
				ReversedBy:     "finance.admin",
				Reason:         "bank bounced the transfer",
			}, testMetadata())
			require.NoError(t, err)

			result, err := flow.RecordVerification(ctx, recordVerificationRequest(commission.UUID.String(), "first"), testMetadata())
			require.NoError(t, err)
			assert.Equal(t, string(models.VerificationStatusFirstVerified), result.VerificationStatus)
			assert.Equal(t, string(models.VerificationRecordStatusVerified), result.Verification.Status)
			assert.Nil(t, result.Verification.ReversedBy)
			assert.Nil(t, result.Verification.ReversedAt)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSetEligibility(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		commissionRepo := repository.NewCommissionRepository(testDB.DB)
		flow := newVerificationFlow(testDB)
		ctx := testingutil.CreateTestContext()

		employee, err := fixtures.CreateTestEmployee()
		require.NoError(t, err)

		t.Run("RecordsReconciliationVerdict", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeInstallmentSale, 100000, 12, 5)
			require.NoError(t, err)
			commission, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)

			result, err := flow.SetEligibility(ctx, commission.UUID.String(), &dto.SetEligibilityRequest{
				IsEligible: utils.ToPtr(true),
				Source:     "reconciliation-batch-42",
			}, testMetadata())
			require.NoError(t, err)
			assert.True(t, result.IsEligibleForPayment)

			stored, err := commissionRepo.ByID(ctx, commission.ID)
			require.NoError(t, err)
			assert.True(t, stored.IsEligibleForPayment)

			result, err = flow.SetEligibility(ctx, commission.UUID.String(), &dto.SetEligibilityRequest{
				IsEligible: utils.ToPtr(false),
			}, testMetadata())
			require.NoError(t, err)
			assert.False(t, result.IsEligibleForPayment)
		})

		t.Run("RejectsCashSale", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 5)
			require.NoError(t, err)
			commission, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)

			_, err = flow.SetEligibility(ctx, commission.UUID.String(), &dto.SetEligibilityRequest{
				IsEligible: utils.ToPtr(true),
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsVerificationNotRequired(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestReverseVerification(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		commissionRepo := repository.NewCommissionRepository(testDB.DB)
		verificationFlow := newVerificationFlow(testDB)
		paymentFlow := newSplitPaymentFlow(testDB)
		ctx := testingutil.CreateTestContext()

		employee, err := fixtures.CreateTestEmployee()
		require.NoError(t, err)
		beneficiary, err := fixtures.CreateTestEmployee()
		require.NoError(t, err)

		reverseRequest := func(commissionUUID string) *dto.ReverseVerificationRequest {
			return &dto.ReverseVerificationRequest{
				CommissionUUID: commissionUUID,
				Installment:    "first",
				ReversedBy:     "finance.admin",
				Reason:         "client payment bounced",
			}
		}

		t.Run("DowngradesTrackAndClosesGate", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeInstallmentSale, 100000, 12, 5)
			require.NoError(t, err)
			commission, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)

			_, err = verificationFlow.RecordVerification(ctx, recordVerificationRequest(commission.UUID.String(), "first"), testMetadata())
			require.NoError(t, err)
			_, err = verificationFlow.SetEligibility(ctx, commission.UUID.String(), &dto.SetEligibilityRequest{
				IsEligible: utils.ToPtr(true),
			}, testMetadata())
			require.NoError(t, err)

			result, err := verificationFlow.ReverseVerification(ctx, reverseRequest(commission.UUID.String()), testMetadata())
			require.NoError(t, err)

			assert.Equal(t, string(models.VerificationStatusPending), result.VerificationStatus)
			assert.False(t, result.PaymentReverted)
			assert.Equal(t, string(models.VerificationRecordStatusReversed), result.Verification.Status)
			require.NotNil(t, result.Verification.ReversedBy)
			assert.Equal(t, "finance.admin", *result.Verification.ReversedBy)

			stored, err := commissionRepo.ByID(ctx, commission.ID)
			require.NoError(t, err)
			assert.Nil(t, stored.FirstPaymentVerifiedAt)
			assert.False(t, stored.IsEligibleForPayment)
		})

		t.Run("RejectsNonVerifiedRecord", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeInstallmentSale, 100000, 12, 5)
			require.NoError(t, err)
			commission, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)

			_, err = verificationFlow.ReverseVerification(ctx, reverseRequest(commission.UUID.String()), testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsVerificationNotFound(err))

			req := recordVerificationRequest(commission.UUID.String(), "first")
			req.Result = "failed"
			_, err = verificationFlow.RecordVerification(ctx, req, testMetadata())
			require.NoError(t, err)

			_, err = verificationFlow.ReverseVerification(ctx, reverseRequest(commission.UUID.String()), testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsVerificationNotReversible(err))
		})

		t.Run("RevertsPaidCommission", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeInstallmentSale, 100000, 12, 5)
			require.NoError(t, err)
			commission, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)

			_, err = verificationFlow.RecordVerification(ctx, recordVerificationRequest(commission.UUID.String(), "first"), testMetadata())
			require.NoError(t, err)
			_, err = verificationFlow.SetEligibility(ctx, commission.UUID.String(), &dto.SetEligibilityRequest{
				IsEligible: utils.ToPtr(true),
			}, testMetadata())
			require.NoError(t, err)

			payResult, err := paymentFlow.BulkPay(ctx, &dto.BulkPayRequest{
				CommissionUUIDs: []string{commission.UUID.String()},
			}, testMetadata())
			require.NoError(t, err)
			require.Equal(t, 1, payResult.TransitionedCount)

			result, err := verificationFlow.ReverseVerification(ctx, reverseRequest(commission.UUID.String()), testMetadata())
			require.NoError(t, err)
			assert.True(t, result.PaymentReverted)

			stored, err := commissionRepo.ByID(ctx, commission.ID)
			require.NoError(t, err)
			assert.False(t, stored.IsPaid())
			assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
			assert.Nil(t, stored.PaymentDate)
			assert.Equal(t, models.CommissionStatusGenerated, stored.Status)
		})

		t.Run("DivisionReversalRevertsPaidParent", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeInstallmentSale, 100000, 12, 5)
			require.NoError(t, err)
			parent, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)
			division, err := fixtures.CreateTestDivision(parent, beneficiary, 100, 1)
			require.NoError(t, err)

			_, err = verificationFlow.RecordVerification(ctx, recordVerificationRequest(division.UUID.String(), "first"), testMetadata())
			require.NoError(t, err)
			_, err = verificationFlow.SetEligibility(ctx, division.UUID.String(), &dto.SetEligibilityRequest{
				IsEligible: utils.ToPtr(true),
			}, testMetadata())
			require.NoError(t, err)

			payResult, err := paymentFlow.BulkPay(ctx, &dto.BulkPayRequest{
				CommissionUUIDs: []string{division.UUID.String()},
			}, testMetadata())
			require.NoError(t, err)
			// The lone division settles the parent too
			require.Equal(t, 2, payResult.TransitionedCount)

			result, err := verificationFlow.ReverseVerification(ctx, reverseRequest(division.UUID.String()), testMetadata())
			require.NoError(t, err)
			assert.True(t, result.PaymentReverted)

			storedDivision, err := commissionRepo.ByID(ctx, division.ID)
			require.NoError(t, err)
			assert.False(t, storedDivision.IsPaid())
			assert.Equal(t, models.CommissionStatusGenerated, storedDivision.Status)

			storedParent, err := commissionRepo.ByID(ctx, parent.ID)
			require.NoError(t, err)
			assert.False(t, storedParent.IsPaid())
			assert.Nil(t, storedParent.PaymentDate)
			// The root keeps its allocation progress after the revert
			assert.Equal(t, models.CommissionStatusFullyPaid, storedParent.Status)
		})

		return nil
	})
	require.NoError(t, err)
}
