// Package businessflow contains the business logic for the commission ledger.
package businessflow

import (
	"context"
	"log"
	"time"

	"github.com/novinmelk/back-office/app/dto"
	"github.com/novinmelk/back-office/config"
	"github.com/novinmelk/back-office/models"
	"github.com/novinmelk/back-office/utils"
	"github.com/redis/go-redis/v9"
)

const RequestIDKey = "X-Request-ID"

func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}

func cacheUsable(rc *redis.Client, cfg *config.CacheConfig) bool {
	return rc != nil && cfg != nil && cfg.Enabled
}

// payrollCacheGeneration returns the current payroll cache generation counter.
// Cached payroll views embed the generation in their key, so bumping the
// counter orphans every stale entry at once.
func payrollCacheGeneration(ctx context.Context, rc *redis.Client, cfg *config.CacheConfig) string {
	gen, err := rc.Get(ctx, redisKey(*cfg, utils.PayrollGenerationKey)).Result()
	if err != nil {
		return "0"
	}
	return gen
}

func bumpPayrollCacheGeneration(ctx context.Context, rc *redis.Client, cfg *config.CacheConfig) {
	if !cacheUsable(rc, cfg) {
		return
	}
	if err := rc.Incr(ctx, redisKey(*cfg, utils.PayrollGenerationKey)).Err(); err != nil {
		log.Printf("Failed to bump payroll cache generation: %v", err)
	}
}

// ClientMetadata holds client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// ToCommissionDTO converts a commission model to its wire representation.
// Employee, sale and parent are optional; callers pass what they have loaded
// and the corresponding fields stay empty otherwise.
func ToCommissionDTO(c models.Commission, employee *models.Employee, sale *models.SaleContract, parentUUID *string) dto.CommissionDTO {
	out := dto.CommissionDTO{
		ID:   c.ID,
		UUID: c.UUID.String(),

		Type:       string(c.Type),
		SaleAmount: c.SaleAmount,
		TermMonths: c.TermMonths,
		SalesCount: c.SalesCount,
		Percentage: c.Percentage,

		Amount:      c.Amount,
		TotalAmount: c.TotalAmount,

		PaymentStatus:    string(c.PaymentStatus),
		Status:           string(c.Status),
		PaymentDate:      formatTimePtr(c.PaymentDate),
		CommissionPeriod: c.CommissionPeriod,
		PaymentPeriod:    c.PaymentPeriod,

		ParentCommissionUUID: parentUUID,
		IsPayable:            c.IsPayable,
		PaymentPart:          c.PaymentPart,
		PaymentPercentage:    c.PaymentPercentage,

		RequiresClientPaymentVerification: c.RequiresClientPaymentVerification,
		PaymentVerificationStatus:         string(c.PaymentVerificationStatus),
		VerificationProgress:              c.VerificationProgress(),
		IsEligibleForPayment:              c.IsEligibleForPayment,
		FirstPaymentVerifiedAt:            formatTimePtr(c.FirstPaymentVerifiedAt),
		SecondPaymentVerifiedAt:           formatTimePtr(c.SecondPaymentVerifiedAt),

		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}

	if employee != nil {
		out.EmployeeUUID = employee.UUID.String()
		out.EmployeeName = employee.FullName()
	}
	if sale != nil {
		out.SaleContractUUID = sale.UUID.String()
		out.SaleContractNumber = sale.ContractNumber
	}

	return out
}

// ToVerificationDTO converts a verification record to its wire representation
func ToVerificationDTO(v models.PaymentVerification, commissionUUID string) dto.VerificationDTO {
	return dto.VerificationDTO{
		ID:               v.ID,
		UUID:             v.UUID.String(),
		CommissionUUID:   commissionUUID,
		Installment:      string(v.Installment),
		ClientPaymentRef: v.ClientPaymentRef,
		VerifiedAmount:   v.VerifiedAmount,
		Method:           string(v.Method),
		Status:           string(v.Status),
		VerifiedBy:       v.VerifiedBy,
		ReversedBy:       v.ReversedBy,
		ReversalReason:   v.ReversalReason,
		ReversedAt:       formatTimePtr(v.ReversedAt),
		CreatedAt:        v.CreatedAt.Format(time.RFC3339),
	}
}
