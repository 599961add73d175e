// Package businessflow contains the core business logic and use cases for the commission ledger
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Employee and sale errors
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrEmployeeInactive = errors.New("employee is inactive")
	ErrSaleNotFound     = errors.New("sale contract not found")
	ErrSaleNotFinalized = errors.New("sale contract is not finalized")

	// Commission ledger errors
	ErrCommissionNotFound         = errors.New("commission not found")
	ErrCommissionAlreadyGenerated = errors.New("commission already generated for this sale")
	ErrCommissionCancelled        = errors.New("commission is cancelled")
	ErrCannotDeleteCommission     = errors.New("paid or verified commissions cannot be deleted")
	ErrRateTableEmpty             = errors.New("no active commission rate tiers")

	// Split payment errors
	ErrInvalidSplit         = errors.New("split percentage is out of range or exceeds the remaining share")
	ErrAlreadyPaid          = errors.New("commission is already paid")
	ErrSplitOnDivision      = errors.New("divisions cannot be split further")
	ErrInvalidPaymentPeriod = errors.New("payment period must match YYYY-MM-P{part}")

	// Verification errors
	ErrNotEligibleForPayment       = errors.New("commission is not eligible for payment")
	ErrVerificationNotRequired     = errors.New("commission does not require client payment verification")
	ErrVerificationNotFound        = errors.New("verification record not found")
	ErrVerificationAlreadyRecorded = errors.New("verification already recorded for this installment")
	ErrVerificationNotReversible   = errors.New("only verified records can be reversed")
	ErrInvalidInstallment          = errors.New("installment must be first or second")
	ErrVerifyingActorRequired      = errors.New("manual verification requires a verifying actor")

	// Filter errors
	ErrInvalidPage           = errors.New("page must be at least 1")
	ErrInvalidPageSize       = errors.New("page size must be between 1 and 100")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsEmployeeNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound)
}

func IsEmployeeInactive(err error) bool {
	return errors.Is(err, ErrEmployeeInactive)
}

func IsSaleNotFound(err error) bool {
	return errors.Is(err, ErrSaleNotFound)
}

func IsSaleNotFinalized(err error) bool {
	return errors.Is(err, ErrSaleNotFinalized)
}

func IsCommissionNotFound(err error) bool {
	return errors.Is(err, ErrCommissionNotFound)
}

func IsCommissionAlreadyGenerated(err error) bool {
	return errors.Is(err, ErrCommissionAlreadyGenerated)
}

func IsCommissionCancelled(err error) bool {
	return errors.Is(err, ErrCommissionCancelled)
}

func IsCannotDeleteCommission(err error) bool {
	return errors.Is(err, ErrCannotDeleteCommission)
}

func IsInvalidSplit(err error) bool {
	return errors.Is(err, ErrInvalidSplit)
}

func IsAlreadyPaid(err error) bool {
	return errors.Is(err, ErrAlreadyPaid)
}

func IsSplitOnDivision(err error) bool {
	return errors.Is(err, ErrSplitOnDivision)
}

func IsInvalidPaymentPeriod(err error) bool {
	return errors.Is(err, ErrInvalidPaymentPeriod)
}

func IsNotEligibleForPayment(err error) bool {
	return errors.Is(err, ErrNotEligibleForPayment)
}

func IsVerificationNotRequired(err error) bool {
	return errors.Is(err, ErrVerificationNotRequired)
}

func IsVerificationNotFound(err error) bool {
	return errors.Is(err, ErrVerificationNotFound)
}

func IsVerificationAlreadyRecorded(err error) bool {
	return errors.Is(err, ErrVerificationAlreadyRecorded)
}

func IsVerificationNotReversible(err error) bool {
	return errors.Is(err, ErrVerificationNotReversible)
}

func IsInvalidInstallment(err error) bool {
	return errors.Is(err, ErrInvalidInstallment)
}
