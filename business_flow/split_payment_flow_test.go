package businessflow_test

import (
	"testing"
	"time"

	"github.com/novinmelk/back-office/app/dto"
	businessflow "github.com/novinmelk/back-office/business_flow"
	"github.com/novinmelk/back-office/models"
	"github.com/novinmelk/back-office/repository"
	testingutil "github.com/novinmelk/back-office/testing"
	"github.com/novinmelk/back-office/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSplitPaymentFlow(testDB *testingutil.TestDB) businessflow.SplitPaymentFlow {
	return businessflow.NewSplitPaymentFlow(
		repository.NewCommissionRepository(testDB.DB),
		repository.NewEmployeeRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
		nil,
		nil,
	)
}

func TestCreateDivision(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		commissionRepo := repository.NewCommissionRepository(testDB.DB)
		flow := newSplitPaymentFlow(testDB)
		ctx := testingutil.CreateTestContext()

		employee, err := fixtures.CreateTestEmployee()
		require.NoError(t, err)
		beneficiary, err := fixtures.CreateTestEmployee()
		require.NoError(t, err)

		t.Run("FirstDivisionDemotesParent", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 10)
			require.NoError(t, err)
			parent, err := fixtures.CreateTestCommission(employee, sale, 3.00)
			require.NoError(t, err)

			result, err := flow.CreateDivision(ctx, parent.UUID.String(), &dto.CreateDivisionRequest{
				BeneficiaryUUID: beneficiary.UUID.String(),
				Percentage:      60,
				PaymentPeriod:   utils.ToPtr("2025-04-P1"),
			}, testMetadata())
			require.NoError(t, err)

			assert.Equal(t, 1800.00, result.Division.Amount)
			assert.Equal(t, 60.0, result.Division.PaymentPercentage)
			assert.Equal(t, 1, result.Division.PaymentPart)
			assert.Equal(t, 60.0, result.AllocatedPercentage)
			assert.False(t, result.Parent.IsPayable)
			assert.Equal(t, string(models.CommissionStatusPartiallyPaid), result.Parent.Status)

			stored, err := commissionRepo.ByUUID(ctx, parent.UUID.String())
			require.NoError(t, err)
			assert.False(t, stored.IsPayable)
			assert.True(t, stored.IsControlAggregate())
			// The parent keeps the full family amount
			assert.Equal(t, 3000.00, stored.TotalAmount)
		})

		t.Run("FullAllocationMarksParentFullySplit", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 10)
			require.NoError(t, err)
			parent, err := fixtures.CreateTestCommission(employee, sale, 3.00)
			require.NoError(t, err)

			_, err = flow.CreateDivision(ctx, parent.UUID.String(), &dto.CreateDivisionRequest{
				BeneficiaryUUID: beneficiary.UUID.String(),
				Percentage:      60,
			}, testMetadata())
			require.NoError(t, err)

			result, err := flow.CreateDivision(ctx, parent.UUID.String(), &dto.CreateDivisionRequest{
				BeneficiaryUUID: employee.UUID.String(),
				Percentage:      40,
			}, testMetadata())
			require.NoError(t, err)

			assert.Equal(t, 100.0, result.AllocatedPercentage)
			assert.Equal(t, 2, result.Division.PaymentPart)
			assert.Equal(t, string(models.CommissionStatusFullyPaid), result.Parent.Status)
		})

		t.Run("RejectsCeilingOverflowWithoutPersisting", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 10)
			require.NoError(t, err)
			parent, err := fixtures.CreateTestCommission(employee, sale, 3.00)
			require.NoError(t, err)

			_, err = flow.CreateDivision(ctx, parent.UUID.String(), &dto.CreateDivisionRequest{
				BeneficiaryUUID: beneficiary.UUID.String(),
				Percentage:      70,
			}, testMetadata())
			require.NoError(t, err)

			_, err = flow.CreateDivision(ctx, parent.UUID.String(), &dto.CreateDivisionRequest{
				BeneficiaryUUID: employee.UUID.String(),
				Percentage:      40,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidSplit(err))

			divisions, err := commissionRepo.ChildrenOf(ctx, parent.ID)
			require.NoError(t, err)
			assert.Len(t, divisions, 1)
		})

		t.Run("RejectsSplitOnDivision", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 10)
			require.NoError(t, err)
			parent, err := fixtures.CreateTestCommission(employee, sale, 3.00)
			require.NoError(t, err)
			division, err := fixtures.CreateTestDivision(parent, beneficiary, 50, 1)
			require.NoError(t, err)

			_, err = flow.CreateDivision(ctx, division.UUID.String(), &dto.CreateDivisionRequest{
				BeneficiaryUUID: employee.UUID.String(),
				Percentage:      10,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsSplitOnDivision(err))
		})

		t.Run("RejectsInactiveBeneficiary", func(t *testing.T) {
			inactive, err := fixtures.CreateInactiveTestEmployee()
			require.NoError(t, err)
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 10)
			require.NoError(t, err)
			parent, err := fixtures.CreateTestCommission(employee, sale, 3.00)
			require.NoError(t, err)

			_, err = flow.CreateDivision(ctx, parent.UUID.String(), &dto.CreateDivisionRequest{
				BeneficiaryUUID: inactive.UUID.String(),
				Percentage:      10,
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsEmployeeInactive(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestBulkPay(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		commissionRepo := repository.NewCommissionRepository(testDB.DB)
		flow := newSplitPaymentFlow(testDB)
		ctx := testingutil.CreateTestContext()

		employee, err := fixtures.CreateTestEmployee()
		require.NoError(t, err)
		beneficiary, err := fixtures.CreateTestEmployee()
		require.NoError(t, err)

		t.Run("PaysStandaloneAndIsIdempotent", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 5)
			require.NoError(t, err)
			commission, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(commission).Update("payment_period", "2025-04-P1").Error)

			result, err := flow.BulkPay(ctx, &dto.BulkPayRequest{
				CommissionUUIDs: []string{commission.UUID.String()},
			}, testMetadata())
			require.NoError(t, err)
			require.Len(t, result.Outcomes, 1)
			assert.Equal(t, dto.BulkPayOutcomePaid, result.Outcomes[0].Outcome)
			assert.Equal(t, 1, result.TransitionedCount)

			stored, err := commissionRepo.ByID(ctx, commission.ID)
			require.NoError(t, err)
			assert.True(t, stored.IsPaid())
			// Payment date resolved from the record's own payment period
			require.NotNil(t, stored.PaymentDate)
			assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), stored.PaymentDate.UTC())

			// Second call is a counting no-op
			again, err := flow.BulkPay(ctx, &dto.BulkPayRequest{
				CommissionUUIDs: []string{commission.UUID.String()},
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, dto.BulkPayOutcomeAlreadyPaid, again.Outcomes[0].Outcome)
			assert.Equal(t, 0, again.TransitionedCount)
		})

		t.Run("LastDivisionCascadesUpToParent", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 10)
			require.NoError(t, err)
			parent, err := fixtures.CreateTestCommission(employee, sale, 3.00)
			require.NoError(t, err)
			divisionA, err := fixtures.CreateTestDivision(parent, employee, 60, 1)
			require.NoError(t, err)
			divisionB, err := fixtures.CreateTestDivision(parent, beneficiary, 40, 2)
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(divisionA).Update("payment_period", "2025-04-P1").Error)
			require.NoError(t, testDB.DB.Model(divisionB).Update("payment_period", "2025-05-P2").Error)

			result, err := flow.BulkPay(ctx, &dto.BulkPayRequest{
				CommissionUUIDs: []string{divisionA.UUID.String()},
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, 1, result.TransitionedCount)

			storedParent, err := commissionRepo.ByID(ctx, parent.ID)
			require.NoError(t, err)
			assert.False(t, storedParent.IsPaid())

			result, err = flow.BulkPay(ctx, &dto.BulkPayRequest{
				CommissionUUIDs: []string{divisionB.UUID.String()},
			}, testMetadata())
			require.NoError(t, err)
			// Division B plus the cascaded parent
			assert.Equal(t, 2, result.TransitionedCount)

			storedParent, err = commissionRepo.ByID(ctx, parent.ID)
			require.NoError(t, err)
			assert.True(t, storedParent.IsPaid())
			// The parent settles with the triggering division's payment date
			require.NotNil(t, storedParent.PaymentDate)
			assert.Equal(t, time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC), storedParent.PaymentDate.UTC())
		})

		t.Run("ParentCascadesDownToDivisions", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 10)
			require.NoError(t, err)
			parent, err := fixtures.CreateTestCommission(employee, sale, 3.00)
			require.NoError(t, err)
			divisionA, err := fixtures.CreateTestDivision(parent, employee, 60, 1)
			require.NoError(t, err)
			divisionB, err := fixtures.CreateTestDivision(parent, beneficiary, 40, 2)
			require.NoError(t, err)

			result, err := flow.BulkPay(ctx, &dto.BulkPayRequest{
				CommissionUUIDs: []string{parent.UUID.String()},
				PaymentPeriod:   "2025-06-P1",
			}, testMetadata())
			require.NoError(t, err)
			// Parent plus both divisions
			assert.Equal(t, 3, result.TransitionedCount)

			for _, id := range []uint{parent.ID, divisionA.ID, divisionB.ID} {
				stored, err := commissionRepo.ByID(ctx, id)
				require.NoError(t, err)
				assert.True(t, stored.IsPaid())
				require.NotNil(t, stored.PaymentDate)
				assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), stored.PaymentDate.UTC())
			}
		})

		t.Run("DivisionUnderPaidParentIsSkipped", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 10)
			require.NoError(t, err)
			parent, err := fixtures.CreateTestCommission(employee, sale, 3.00)
			require.NoError(t, err)
			division, err := fixtures.CreateTestDivision(parent, beneficiary, 50, 1)
			require.NoError(t, err)

			_, err = flow.BulkPay(ctx, &dto.BulkPayRequest{
				CommissionUUIDs: []string{parent.UUID.String()},
			}, testMetadata())
			require.NoError(t, err)

			result, err := flow.BulkPay(ctx, &dto.BulkPayRequest{
				CommissionUUIDs: []string{division.UUID.String()},
			}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, dto.BulkPayOutcomeSkippedParent, result.Outcomes[0].Outcome)
			assert.Equal(t, 0, result.TransitionedCount)
		})

		t.Run("GatesUnverifiedCommissions", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeInstallmentSale, 100000, 12, 5)
			require.NoError(t, err)
			gated, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)

			cashSale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 50000, 12, 5)
			require.NoError(t, err)
			payable, err := fixtures.CreateTestCommission(employee, cashSale, 1.50)
			require.NoError(t, err)

			result, err := flow.BulkPay(ctx, &dto.BulkPayRequest{
				CommissionUUIDs: []string{gated.UUID.String(), payable.UUID.String()},
			}, testMetadata())
			require.NoError(t, err)
			require.Len(t, result.Outcomes, 2)

			assert.Equal(t, dto.BulkPayOutcomeNotEligible, result.Outcomes[0].Outcome)
			assert.Equal(t, dto.BulkPayOutcomePaid, result.Outcomes[1].Outcome)
			assert.Equal(t, 1, result.TransitionedCount)

			// The gated record's status is untouched
			stored, err := commissionRepo.ByID(ctx, gated.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
		})

		t.Run("ReportsPerIdOutcomes", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 5)
			require.NoError(t, err)
			cancelled, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(cancelled).Update("payment_status", models.PaymentStatusCancelled).Error)

			result, err := flow.BulkPay(ctx, &dto.BulkPayRequest{
				CommissionUUIDs: []string{
					cancelled.UUID.String(),
					"0b36e29e-19b9-4b33-8e2c-7b0f1b2b3c4d",
				},
			}, testMetadata())
			require.NoError(t, err)
			require.Len(t, result.Outcomes, 2)
			assert.Equal(t, dto.BulkPayOutcomeCancelled, result.Outcomes[0].Outcome)
			assert.Equal(t, dto.BulkPayOutcomeNotFound, result.Outcomes[1].Outcome)
			assert.Equal(t, 0, result.TransitionedCount)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSplitPaymentSummary(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newSplitPaymentFlow(testDB)
		ctx := testingutil.CreateTestContext()

		employee, err := fixtures.CreateTestEmployee()
		require.NoError(t, err)
		beneficiary, err := fixtures.CreateTestEmployee()
		require.NoError(t, err)

		sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 10)
		require.NoError(t, err)
		parent, err := fixtures.CreateTestCommission(employee, sale, 3.00)
		require.NoError(t, err)
		_, err = fixtures.CreateTestDivision(parent, beneficiary, 60, 1)
		require.NoError(t, err)
		_, err = fixtures.CreateTestDivision(parent, employee, 15, 2)
		require.NoError(t, err)

		result, err := flow.SplitPaymentSummary(ctx, parent.UUID.String())
		require.NoError(t, err)

		assert.Equal(t, parent.UUID.String(), result.CommissionUUID)
		assert.Equal(t, 3000.00, result.OriginalAmount)
		assert.Equal(t, 75.0, result.TotalPaidPercentage)
		assert.Equal(t, 2250.00, result.TotalPaidAmount)
		assert.Equal(t, 25.0, result.RemainingPercentage)
		assert.Equal(t, 750.00, result.RemainingAmount)
		require.Len(t, result.Divisions, 2)
		assert.Equal(t, beneficiary.UUID.String(), result.Divisions[0].BeneficiaryUUID)

		return nil
	})
	require.NoError(t, err)
}
