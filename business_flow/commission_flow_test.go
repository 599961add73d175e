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

func newCommissionFlow(testDB *testingutil.TestDB) businessflow.CommissionFlow {
	return businessflow.NewCommissionFlow(
		repository.NewCommissionRepository(testDB.DB),
		repository.NewRateTierRepository(testDB.DB),
		repository.NewEmployeeRepository(testDB.DB),
		repository.NewSaleContractRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
		nil,
		nil,
	)
}

func testMetadata() *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata("127.0.0.1", "go-test")
}

func TestGenerateCommission(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		require.NoError(t, fixtures.SeedDefaultRateTiers())

		commissionRepo := repository.NewCommissionRepository(testDB.DB)
		flow := newCommissionFlow(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("ResolvesRateFromLadder", func(t *testing.T) {
			employee, err := fixtures.CreateTestEmployee()
			require.NoError(t, err)
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeInstallmentSale, 100000, 24, 9)
			require.NoError(t, err)

			result, err := flow.GenerateFromSale(ctx, &dto.GenerateCommissionRequest{
				SaleContractUUID: sale.UUID.String(),
			}, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result)

			// 9 sales on a 24 month term resolve to the short-term 8+ rung
			assert.Equal(t, 2.50, result.Commission.Percentage)
			assert.Equal(t, 2500.00, result.Commission.Amount)
			assert.Equal(t, 2500.00, result.Commission.TotalAmount)
			assert.Equal(t, string(models.PaymentStatusPending), result.Commission.PaymentStatus)
			assert.Equal(t, "2025-03", result.Commission.CommissionPeriod)
			assert.True(t, result.Commission.IsPayable)
			assert.Equal(t, 1, result.Commission.PaymentPart)
			assert.True(t, result.Commission.RequiresClientPaymentVerification)
			assert.False(t, result.Commission.IsEligibleForPayment)
			assert.Equal(t, employee.UUID.String(), result.Commission.EmployeeUUID)

			stored, err := commissionRepo.ByUUID(ctx, result.Commission.UUID)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, 2500.00, stored.Amount)
		})

		t.Run("CashSaleNeedsNoVerification", func(t *testing.T) {
			employee, err := fixtures.CreateTestEmployee()
			require.NoError(t, err)
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 50000, 48, 3)
			require.NoError(t, err)

			result, err := flow.GenerateFromSale(ctx, &dto.GenerateCommissionRequest{
				SaleContractUUID: sale.UUID.String(),
			}, testMetadata())
			require.NoError(t, err)

			// 3 sales on a 48 month term resolve to the long-term default rung
			assert.Equal(t, 2.00, result.Commission.Percentage)
			assert.Equal(t, 1000.00, result.Commission.Amount)
			assert.False(t, result.Commission.RequiresClientPaymentVerification)
		})

		t.Run("RejectsDuplicateGeneration", func(t *testing.T) {
			employee, err := fixtures.CreateTestEmployee()
			require.NoError(t, err)
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 80000, 12, 1)
			require.NoError(t, err)

			_, err = flow.GenerateFromSale(ctx, &dto.GenerateCommissionRequest{SaleContractUUID: sale.UUID.String()}, testMetadata())
			require.NoError(t, err)

			_, err = flow.GenerateFromSale(ctx, &dto.GenerateCommissionRequest{SaleContractUUID: sale.UUID.String()}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsCommissionAlreadyGenerated(err))
		})

		t.Run("RejectsDraftSale", func(t *testing.T) {
			employee, err := fixtures.CreateTestEmployee()
			require.NoError(t, err)
			sale, err := fixtures.CreateDraftSaleContract(employee, models.CommissionTypeCashSale, 80000, 12, 1)
			require.NoError(t, err)

			_, err = flow.GenerateFromSale(ctx, &dto.GenerateCommissionRequest{SaleContractUUID: sale.UUID.String()}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsSaleNotFinalized(err))
		})

		t.Run("RejectsInactiveEmployee", func(t *testing.T) {
			employee, err := fixtures.CreateInactiveTestEmployee()
			require.NoError(t, err)
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 80000, 12, 1)
			require.NoError(t, err)

			_, err = flow.GenerateFromSale(ctx, &dto.GenerateCommissionRequest{SaleContractUUID: sale.UUID.String()}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsEmployeeInactive(err))
		})

		t.Run("RejectsUnknownSale", func(t *testing.T) {
			_, err := flow.GenerateFromSale(ctx, &dto.GenerateCommissionRequest{
				SaleContractUUID: "0b36e29e-19b9-4b33-8e2c-7b0f1b2b3c4d",
			}, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsSaleNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestGetCommission(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newCommissionFlow(testDB)
		ctx := testingutil.CreateTestContext()

		employee, err := fixtures.CreateTestEmployee()
		require.NoError(t, err)
		beneficiary, err := fixtures.CreateTestEmployee()
		require.NoError(t, err)

		sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 10)
		require.NoError(t, err)
		parent, err := fixtures.CreateTestCommission(employee, sale, 3.00)
		require.NoError(t, err)
		divisionA, err := fixtures.CreateTestDivision(parent, beneficiary, 60, 1)
		require.NoError(t, err)
		divisionB, err := fixtures.CreateTestDivision(parent, employee, 40, 2)
		require.NoError(t, err)

		t.Run("ParentListsItsDivisions", func(t *testing.T) {
			result, err := flow.GetCommission(ctx, parent.UUID.String())
			require.NoError(t, err)

			assert.False(t, result.Commission.IsPayable)
			require.Len(t, result.Divisions, 2)
			assert.Equal(t, 3000.00, result.TotalSplitAmount)
		})

		t.Run("DivisionReportsFamilyTotal", func(t *testing.T) {
			result, err := flow.GetCommission(ctx, divisionA.UUID.String())
			require.NoError(t, err)

			// The division's own share is 1800, but the split total spans
			// every sibling of the family: 1800 + 1200.
			assert.Equal(t, 1800.00, result.Commission.Amount)
			assert.Equal(t, 3000.00, result.TotalSplitAmount)
			require.NotNil(t, result.Commission.ParentCommissionUUID)
			assert.Equal(t, parent.UUID.String(), *result.Commission.ParentCommissionUUID)
			assert.Empty(t, result.Divisions)

			result, err = flow.GetCommission(ctx, divisionB.UUID.String())
			require.NoError(t, err)
			assert.Equal(t, 1200.00, result.Commission.Amount)
			assert.Equal(t, 3000.00, result.TotalSplitAmount)
		})

		t.Run("StandaloneReportsOwnAmount", func(t *testing.T) {
			standaloneSale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 50000, 12, 2)
			require.NoError(t, err)
			standalone, err := fixtures.CreateTestCommission(employee, standaloneSale, 1.50)
			require.NoError(t, err)

			result, err := flow.GetCommission(ctx, standalone.UUID.String())
			require.NoError(t, err)
			assert.Equal(t, 750.00, result.TotalSplitAmount)
			assert.Empty(t, result.Divisions)
		})

		t.Run("UnknownCommission", func(t *testing.T) {
			_, err := flow.GetCommission(ctx, "0b36e29e-19b9-4b33-8e2c-7b0f1b2b3c4d")
			require.Error(t, err)
			assert.True(t, businessflow.IsCommissionNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestListCommissions(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newCommissionFlow(testDB)
		ctx := testingutil.CreateTestContext()

		employee, err := fixtures.CreateTestEmployee()
		require.NoError(t, err)
		other, err := fixtures.CreateTestEmployee()
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 5)
			require.NoError(t, err)
			_, err = fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)
		}
		otherSale, err := fixtures.CreateTestSaleContract(other, models.CommissionTypePresale, 200000, 48, 11)
		require.NoError(t, err)
		_, err = fixtures.CreateTestCommission(other, otherSale, 3.50)
		require.NoError(t, err)

		t.Run("FilterByEmployee", func(t *testing.T) {
			result, err := flow.ListCommissions(ctx, &dto.ListCommissionsRequest{
				EmployeeUUID: employee.UUID.String(),
			})
			require.NoError(t, err)
			assert.Equal(t, int64(3), result.Total)
			assert.Len(t, result.Items, 3)
			for _, item := range result.Items {
				assert.Equal(t, employee.UUID.String(), item.EmployeeUUID)
			}
		})

		t.Run("FilterByType", func(t *testing.T) {
			result, err := flow.ListCommissions(ctx, &dto.ListCommissionsRequest{
				Type: string(models.CommissionTypePresale),
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), result.Total)
		})

		t.Run("Pagination", func(t *testing.T) {
			result, err := flow.ListCommissions(ctx, &dto.ListCommissionsRequest{
				PaginationRequest: dto.PaginationRequest{Page: 1, PageSize: 2},
			})
			require.NoError(t, err)
			assert.Equal(t, int64(4), result.Total)
			assert.Len(t, result.Items, 2)
			assert.Equal(t, 2, result.PageSize)
		})

		t.Run("UnknownEmployee", func(t *testing.T) {
			_, err := flow.ListCommissions(ctx, &dto.ListCommissionsRequest{
				EmployeeUUID: "0b36e29e-19b9-4b33-8e2c-7b0f1b2b3c4d",
			})
			require.Error(t, err)
			assert.True(t, businessflow.IsEmployeeNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPayrollView(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newCommissionFlow(testDB)
		ctx := testingutil.CreateTestContext()

		employee, err := fixtures.CreateTestEmployee()
		require.NoError(t, err)
		beneficiary, err := fixtures.CreateTestEmployee()
		require.NoError(t, err)

		sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 10)
		require.NoError(t, err)
		parent, err := fixtures.CreateTestCommission(employee, sale, 3.00)
		require.NoError(t, err)
		division, err := fixtures.CreateTestDivision(parent, beneficiary, 40, 1)
		require.NoError(t, err)

		standaloneSale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 50000, 12, 2)
		require.NoError(t, err)
		standalone, err := fixtures.CreateTestCommission(employee, standaloneSale, 1.50)
		require.NoError(t, err)

		result, err := flow.ListPayableForPayroll(ctx, &dto.PayrollRequest{})
		require.NoError(t, err)

		// The control aggregate never appears; the division and the unsplit
		// standalone commission do.
		uuids := make([]string, 0, len(result.Rows))
		for _, row := range result.Rows {
			uuids = append(uuids, row.CommissionUUID)
		}
		assert.Contains(t, uuids, division.UUID.String())
		assert.Contains(t, uuids, standalone.UUID.String())
		assert.NotContains(t, uuids, parent.UUID.String())
		assert.Equal(t, models.RoundAmount(division.Amount+standalone.Amount), result.TotalAmount)

		return nil
	})
	require.NoError(t, err)
}

func TestCancelCommission(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		commissionRepo := repository.NewCommissionRepository(testDB.DB)
		flow := newCommissionFlow(testDB)
		ctx := testingutil.CreateTestContext()

		employee, err := fixtures.CreateTestEmployee()
		require.NoError(t, err)

		t.Run("CancelsUnpaidFamily", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 5)
			require.NoError(t, err)
			parent, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)
			division, err := fixtures.CreateTestDivision(parent, employee, 30, 1)
			require.NoError(t, err)

			result, err := flow.CancelCommission(ctx, parent.UUID.String(), &dto.CancelCommissionRequest{Reason: "duplicate entry"}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, string(models.PaymentStatusCancelled), result.Commission.PaymentStatus)

			storedDivision, err := commissionRepo.ByID(ctx, division.ID)
			require.NoError(t, err)
			assert.True(t, storedDivision.IsCancelled())
		})

		t.Run("RejectsPaidCommission", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 5)
			require.NoError(t, err)
			commission, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(commission).Update("payment_status", models.PaymentStatusPaid).Error)

			_, err = flow.CancelCommission(ctx, commission.UUID.String(), nil, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsCannotDeleteCommission(err))
		})

		t.Run("RejectsDoubleCancel", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeCashSale, 100000, 12, 5)
			require.NoError(t, err)
			commission, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)

			_, err = flow.CancelCommission(ctx, commission.UUID.String(), nil, testMetadata())
			require.NoError(t, err)

			_, err = flow.CancelCommission(ctx, commission.UUID.String(), nil, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsCommissionCancelled(err))
		})

		t.Run("RejectsVerifiedCommission", func(t *testing.T) {
			sale, err := fixtures.CreateTestSaleContract(employee, models.CommissionTypeInstallmentSale, 100000, 12, 5)
			require.NoError(t, err)
			commission, err := fixtures.CreateTestCommission(employee, sale, 1.50)
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(commission).Update("first_payment_verified_at", utils.UTCNow()).Error)

			_, err = flow.CancelCommission(ctx, commission.UUID.String(), nil, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsCannotDeleteCommission(err))
		})

		return nil
	})
	require.NoError(t, err)
}
