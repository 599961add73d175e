package utils

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Cache key constants
const (
	// PayrollCacheKey is the cache key prefix for the payable commissions view
	PayrollCacheKey = "payroll:payable"

	// PayrollGenerationKey tracks the generation counter for payroll cache
	// invalidation. Bumped whenever a payment, split, or cancellation
	// changes the payable set.
	PayrollGenerationKey = "payroll:generation"
)

// Commission constants
const (
	// FullPaymentPercentage is the share a commission holds before any split
	FullPaymentPercentage = 100.0

	// MaxBulkPayBatchSize caps the number of ids accepted by a bulk pay call
	MaxBulkPayBatchSize = 500
)
