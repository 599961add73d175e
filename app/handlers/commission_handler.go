// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/novinmelk/back-office/app/dto"
	"github.com/novinmelk/back-office/app/middleware"
	businessflow "github.com/novinmelk/back-office/business_flow"
)

// CommissionHandlerInterface defines the contract for commission handlers
type CommissionHandlerInterface interface {
	GenerateCommission(c fiber.Ctx) error
	GetCommission(c fiber.Ctx) error
	ListCommissions(c fiber.Ctx) error
	GetPayroll(c fiber.Ctx) error
	CancelCommission(c fiber.Ctx) error
}

// CommissionHandler handles commission-related HTTP requests
type CommissionHandler struct {
	commissionFlow businessflow.CommissionFlow
	validator      *validator.Validate
}

// NewCommissionHandler creates a new commission handler
func NewCommissionHandler(commissionFlow businessflow.CommissionFlow) *CommissionHandler {
	handler := &CommissionHandler{
		commissionFlow: commissionFlow,
		validator:      validator.New(),
	}

	registerLedgerValidations(handler.validator)

	return handler
}

func (h *CommissionHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CommissionHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GenerateCommission generates the commission of a finalized sale contract
func (h *CommissionHandler) GenerateCommission(c fiber.Ctx) error {
	var req dto.GenerateCommissionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/commissions/generate")
	defer cancel()

	result, err := h.commissionFlow.GenerateFromSale(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsSaleNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Sale contract not found", "SALE_NOT_FOUND", nil)
		}
		if businessflow.IsSaleNotFinalized(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Sale contract is not finalized", "SALE_NOT_FINALIZED", nil)
		}
		if businessflow.IsEmployeeNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Employee not found", "EMPLOYEE_NOT_FOUND", nil)
		}
		if businessflow.IsEmployeeInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Employee is inactive", "EMPLOYEE_INACTIVE", nil)
		}
		if businessflow.IsCommissionAlreadyGenerated(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Commission already generated for this sale", "COMMISSION_ALREADY_GENERATED", nil)
		}

		log.Println("Commission generation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Commission generation failed", "COMMISSION_GENERATION_FAILED", nil)
	}

	middleware.ObserveCommissionGenerated()
	return h.SuccessResponse(c, fiber.StatusCreated, "Commission generated successfully", result)
}

// GetCommission returns one ledger record with its split family
func (h *CommissionHandler) GetCommission(c fiber.Ctx) error {
	commissionUUID := c.Params("uuid")
	if commissionUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Commission UUID is required", "MISSING_COMMISSION_UUID", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/commissions/:uuid")
	defer cancel()

	result, err := h.commissionFlow.GetCommission(ctx, commissionUUID)
	if err != nil {
		if businessflow.IsCommissionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Commission not found", "COMMISSION_NOT_FOUND", nil)
		}

		log.Println("Commission retrieval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Commission retrieval failed", "COMMISSION_RETRIEVAL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Commission retrieved successfully", result)
}

// ListCommissions returns one page of the reporting view
func (h *CommissionHandler) ListCommissions(c fiber.Ctx) error {
	var req dto.ListCommissionsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/commissions")
	defer cancel()

	result, err := h.commissionFlow.ListCommissions(ctx, &req)
	if err != nil {
		if businessflow.IsEmployeeNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Employee not found", "EMPLOYEE_NOT_FOUND", nil)
		}

		log.Println("Commission listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Commission listing failed", "COMMISSION_LISTING_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Commissions retrieved successfully", result)
}

// GetPayroll returns the flat payable view for payslip aggregation
func (h *CommissionHandler) GetPayroll(c fiber.Ctx) error {
	var req dto.PayrollRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/commissions/payable")
	defer cancel()

	result, err := h.commissionFlow.ListPayableForPayroll(ctx, &req)
	if err != nil {
		if businessflow.IsEmployeeNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Employee not found", "EMPLOYEE_NOT_FOUND", nil)
		}

		log.Println("Payroll listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Payroll listing failed", "PAYROLL_LISTING_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Payable commissions retrieved successfully", result)
}

// CancelCommission cancels an unpaid, unverified commission
func (h *CommissionHandler) CancelCommission(c fiber.Ctx) error {
	commissionUUID := c.Params("uuid")
	if commissionUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Commission UUID is required", "MISSING_COMMISSION_UUID", nil)
	}

	var req dto.CancelCommissionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}

	ctx, cancel := createRequestContext(c, "/api/v1/commissions/:uuid/cancel")
	defer cancel()

	result, err := h.commissionFlow.CancelCommission(ctx, commissionUUID, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsCommissionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Commission not found", "COMMISSION_NOT_FOUND", nil)
		}
		if businessflow.IsCommissionCancelled(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Commission is already cancelled", "COMMISSION_ALREADY_CANCELLED", nil)
		}
		if businessflow.IsCannotDeleteCommission(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Paid or verified commissions cannot be cancelled", "COMMISSION_NOT_CANCELLABLE", nil)
		}

		log.Println("Commission cancellation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Commission cancellation failed", "COMMISSION_CANCELLATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Commission cancelled successfully", result)
}
