// Package testing provides test utilities and database setup for testing the commission ledger
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/novinmelk/back-office/models"
	"github.com/novinmelk/back-office/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestEmployee creates an active sales agent with random identity fields
func (tf *TestFixtures) CreateTestEmployee() (*models.Employee, error) {
	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	employee := &models.Employee{
		FirstName:  "Sara",
		LastName:   "Mohammadi",
		NationalID: fmt.Sprintf("0%s", randomDigits),
		Position:   "sales_agent",
		IsActive:   true,
	}

	if err := tf.DB.DB.Create(employee).Error; err != nil {
		return nil, fmt.Errorf("failed to create test employee: %w", err)
	}
	return employee, nil
}

// CreateInactiveTestEmployee creates an employee that cannot receive commissions
func (tf *TestFixtures) CreateInactiveTestEmployee() (*models.Employee, error) {
	employee, err := tf.CreateTestEmployee()
	if err != nil {
		return nil, err
	}
	if err := tf.DB.DB.Model(employee).Update("is_active", false).Error; err != nil {
		return nil, fmt.Errorf("failed to deactivate test employee: %w", err)
	}
	employee.IsActive = false
	return employee, nil
}

// CreateTestSaleContract creates a finalized sale contract for the employee
func (tf *TestFixtures) CreateTestSaleContract(employee *models.Employee, saleType models.CommissionType, saleAmount float64, termMonths, periodSalesCount int) (*models.SaleContract, error) {
	contractDate := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)

	sale := &models.SaleContract{
		ContractNumber:   fmt.Sprintf("NM-%d-%06d", time.Now().Unix(), rand.Intn(1000000)),
		EmployeeID:       employee.ID,
		PropertyRef:      fmt.Sprintf("unit-%04d", rand.Intn(10000)),
		Type:             saleType,
		SaleAmount:       saleAmount,
		TermMonths:       termMonths,
		PeriodSalesCount: periodSalesCount,
		ContractDate:     contractDate,
		FinalizedAt:      utils.ToPtr(contractDate.Add(24 * time.Hour)),
	}

	if err := tf.DB.DB.Create(sale).Error; err != nil {
		return nil, fmt.Errorf("failed to create test sale contract: %w", err)
	}
	return sale, nil
}

// CreateDraftSaleContract creates a sale contract that is not finalized yet
func (tf *TestFixtures) CreateDraftSaleContract(employee *models.Employee, saleType models.CommissionType, saleAmount float64, termMonths, periodSalesCount int) (*models.SaleContract, error) {
	sale, err := tf.CreateTestSaleContract(employee, saleType, saleAmount, termMonths, periodSalesCount)
	if err != nil {
		return nil, err
	}
	if err := tf.DB.DB.Model(sale).Update("finalized_at", nil).Error; err != nil {
		return nil, fmt.Errorf("failed to unfinalize test sale contract: %w", err)
	}
	sale.FinalizedAt = nil
	return sale, nil
}

// SeedDefaultRateTiers inserts the default rate ladders
func (tf *TestFixtures) SeedDefaultRateTiers() error {
	tiers := models.DefaultRateTiers()
	for i := range tiers {
		if err := tf.DB.DB.Create(&tiers[i]).Error; err != nil {
			return fmt.Errorf("failed to seed rate tier: %w", err)
		}
	}
	return nil
}

// CreateTestCommission creates a standalone payable commission for the
// employee and sale, bypassing the generation flow
func (tf *TestFixtures) CreateTestCommission(employee *models.Employee, sale *models.SaleContract, percentage float64) (*models.Commission, error) {
	amount := models.RoundAmount(sale.SaleAmount * percentage / 100)

	commission := &models.Commission{
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
		PaymentPercentage: 100,

		RequiresClientPaymentVerification: sale.Type.RequiresClientPaymentVerification(),
		PaymentVerificationStatus:         models.VerificationStatusPending,
	}

	if err := tf.DB.DB.Create(commission).Error; err != nil {
		return nil, fmt.Errorf("failed to create test commission: %w", err)
	}
	return commission, nil
}

// CreateTestDivision carves a division off the parent commission directly,
// bypassing the split flow, and flips the parent into a control aggregate
func (tf *TestFixtures) CreateTestDivision(parent *models.Commission, beneficiary *models.Employee, percentage float64, paymentPart int) (*models.Commission, error) {
	amount := models.RoundAmount(parent.Amount * percentage / 100)

	division := &models.Commission{
		EmployeeID:     beneficiary.ID,
		SaleContractID: parent.SaleContractID,
		Type:           parent.Type,

		SaleAmount: parent.SaleAmount,
		TermMonths: parent.TermMonths,
		SalesCount: parent.SalesCount,
		Percentage: parent.Percentage,

		Amount:      amount,
		TotalAmount: amount,

		PaymentStatus:    models.PaymentStatusPending,
		Status:           models.CommissionStatusGenerated,
		CommissionPeriod: parent.CommissionPeriod,

		ParentCommissionID: &parent.ID,
		IsPayable:          true,
		PaymentPart:        paymentPart,
		PaymentPercentage:  percentage,

		RequiresClientPaymentVerification: parent.RequiresClientPaymentVerification,
		PaymentVerificationStatus:         parent.PaymentVerificationStatus,
		IsEligibleForPayment:              parent.IsEligibleForPayment,
	}

	if err := tf.DB.DB.Create(division).Error; err != nil {
		return nil, fmt.Errorf("failed to create test division: %w", err)
	}

	updates := map[string]any{
		"is_payable": false,
		"status":     models.CommissionStatusPartiallyPaid,
	}
	if err := tf.DB.DB.Model(parent).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to demote parent to aggregate: %w", err)
	}
	parent.IsPayable = false
	parent.Status = models.CommissionStatusPartiallyPaid

	return division, nil
}
