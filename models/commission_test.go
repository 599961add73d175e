package models

import (
	"testing"
	"time"

	"github.com/novinmelk/back-office/utils"
	"github.com/stretchr/testify/assert"
)

func TestFormatCommissionPeriod(t *testing.T) {
	assert.Equal(t, "2025-03", FormatCommissionPeriod(3, 2025))
	assert.Equal(t, "2025-12", FormatCommissionPeriod(12, 2025))
	assert.Equal(t, "2024-01", FormatCommissionPeriod(1, 2024))
}

func TestFormatPaymentPeriod(t *testing.T) {
	assert.Equal(t, "2025-03-P1", FormatPaymentPeriod(3, 2025, 1))
	assert.Equal(t, "2025-03-P2", FormatPaymentPeriod(3, 2025, 2))
	assert.Equal(t, "2025-11-P12", FormatPaymentPeriod(11, 2025, 12))
}

func TestParsePaymentPeriodDate(t *testing.T) {
	t.Run("ValidPeriods", func(t *testing.T) {
		date, ok := ParsePaymentPeriodDate("2025-03-P1")
		assert.True(t, ok)
		assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), date)

		date, ok = ParsePaymentPeriodDate("2024-12-P7")
		assert.True(t, ok)
		assert.Equal(t, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), date)
	})

	t.Run("InvalidPeriods", func(t *testing.T) {
		for _, period := range []string{"", "2025-03", "2025-3-P1", "2025-13-P1", "2025-00-P2", "25-03-P1", "2025-03-P", "garbage"} {
			_, ok := ParsePaymentPeriodDate(period)
			assert.False(t, ok, "expected %q to be rejected", period)
		}
	})
}

func TestRoundAmount(t *testing.T) {
	assert.Equal(t, 2500.00, RoundAmount(100000*2.50/100))
	assert.Equal(t, 33.33, RoundAmount(33.333333))
	assert.Equal(t, 33.34, RoundAmount(33.335))
	assert.Equal(t, 0.0, RoundAmount(0))
}

func TestCommissionTypeVerificationRequirement(t *testing.T) {
	assert.False(t, CommissionTypeCashSale.RequiresClientPaymentVerification())
	assert.True(t, CommissionTypeInstallmentSale.RequiresClientPaymentVerification())
	assert.True(t, CommissionTypePresale.RequiresClientPaymentVerification())
}

func TestCommissionHelpers(t *testing.T) {
	t.Run("StandalonePayable", func(t *testing.T) {
		c := Commission{IsPayable: true}
		assert.False(t, c.IsDivision())
		assert.False(t, c.IsControlAggregate())
	})

	t.Run("ControlAggregate", func(t *testing.T) {
		c := Commission{IsPayable: false}
		assert.False(t, c.IsDivision())
		assert.True(t, c.IsControlAggregate())
	})

	t.Run("Division", func(t *testing.T) {
		c := Commission{ParentCommissionID: utils.ToPtr(uint(7)), IsPayable: true}
		assert.True(t, c.IsDivision())
		assert.False(t, c.IsControlAggregate())
	})

	t.Run("MarkPaid", func(t *testing.T) {
		c := Commission{PaymentStatus: PaymentStatusPending, Status: CommissionStatusGenerated}
		date := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

		c.MarkPaid(date)

		assert.True(t, c.IsPaid())
		assert.Equal(t, CommissionStatusFullyPaid, c.Status)
		assert.Equal(t, date, *c.PaymentDate)
	})

	t.Run("Cancelled", func(t *testing.T) {
		c := Commission{PaymentStatus: PaymentStatusCancelled}
		assert.True(t, c.IsCancelled())
		assert.False(t, c.IsPaid())
	})
}

func TestVerificationProgress(t *testing.T) {
	t.Run("NotRequired", func(t *testing.T) {
		c := Commission{RequiresClientPaymentVerification: false, PaymentVerificationStatus: VerificationStatusFullyVerified}
		assert.Equal(t, 0, c.VerificationProgress())
	})

	t.Run("Track", func(t *testing.T) {
		c := Commission{RequiresClientPaymentVerification: true}

		c.PaymentVerificationStatus = VerificationStatusPending
		assert.Equal(t, 0, c.VerificationProgress())

		c.PaymentVerificationStatus = VerificationStatusFirstVerified
		assert.Equal(t, 50, c.VerificationProgress())

		c.PaymentVerificationStatus = VerificationStatusSecondVerified
		assert.Equal(t, 50, c.VerificationProgress())

		c.PaymentVerificationStatus = VerificationStatusFullyVerified
		assert.Equal(t, 100, c.VerificationProgress())

		c.PaymentVerificationStatus = VerificationStatusFailed
		assert.Equal(t, 0, c.VerificationProgress())
	})
}
