// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/novinmelk/back-office/app/dto"
	"github.com/novinmelk/back-office/app/middleware"
	businessflow "github.com/novinmelk/back-office/business_flow"
	"github.com/novinmelk/back-office/utils"
)

// SplitPaymentHandlerInterface defines the contract for split payment handlers
type SplitPaymentHandlerInterface interface {
	CreateDivision(c fiber.Ctx) error
	BulkPay(c fiber.Ctx) error
	GetSplitSummary(c fiber.Ctx) error
}

// SplitPaymentHandler handles division and bulk payment HTTP requests
type SplitPaymentHandler struct {
	splitPaymentFlow businessflow.SplitPaymentFlow
	validator        *validator.Validate
}

// NewSplitPaymentHandler creates a new split payment handler
func NewSplitPaymentHandler(splitPaymentFlow businessflow.SplitPaymentFlow) *SplitPaymentHandler {
	handler := &SplitPaymentHandler{
		splitPaymentFlow: splitPaymentFlow,
		validator:        validator.New(),
	}

	registerLedgerValidations(handler.validator)

	return handler
}

func (h *SplitPaymentHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *SplitPaymentHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateDivision carves a percentage share of a commission out for a beneficiary
func (h *SplitPaymentHandler) CreateDivision(c fiber.Ctx) error {
	commissionUUID := c.Params("uuid")
	if commissionUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Commission UUID is required", "MISSING_COMMISSION_UUID", nil)
	}

	var req dto.CreateDivisionRequest
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

	ctx, cancel := createRequestContext(c, "/api/v1/commissions/:uuid/divisions")
	defer cancel()

	result, err := h.splitPaymentFlow.CreateDivision(ctx, commissionUUID, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsCommissionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Commission not found", "COMMISSION_NOT_FOUND", nil)
		}
		if businessflow.IsSplitOnDivision(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Divisions cannot be split further", "SPLIT_ON_DIVISION", nil)
		}
		if businessflow.IsCommissionCancelled(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Commission is cancelled", "COMMISSION_CANCELLED", nil)
		}
		if businessflow.IsAlreadyPaid(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Commission is already paid", "COMMISSION_ALREADY_PAID", nil)
		}
		if businessflow.IsEmployeeNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Beneficiary not found", "EMPLOYEE_NOT_FOUND", nil)
		}
		if businessflow.IsEmployeeInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Beneficiary is inactive", "EMPLOYEE_INACTIVE", nil)
		}
		if businessflow.IsInvalidSplit(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Split percentage is out of range or exceeds the remaining share", "INVALID_SPLIT", nil)
		}

		log.Println("Division creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Division creation failed", "DIVISION_CREATION_FAILED", nil)
	}

	middleware.ObserveDivisionCreated()
	return h.SuccessResponse(c, fiber.StatusCreated, "Division created successfully", result)
}

// BulkPay marks a batch of commissions paid, best effort per id
func (h *SplitPaymentHandler) BulkPay(c fiber.Ctx) error {
	var req dto.BulkPayRequest
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

	if len(req.CommissionUUIDs) > utils.MaxBulkPayBatchSize {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Too many commission ids in one call", "BATCH_TOO_LARGE", fiber.Map{
			"max": utils.MaxBulkPayBatchSize,
		})
	}

	ctx, cancel := createRequestContext(c, "/api/v1/commissions/bulk-pay")
	defer cancel()

	result, err := h.splitPaymentFlow.BulkPay(ctx, &req, clientMetadata(c))
	if err != nil {
		log.Println("Bulk pay failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Bulk pay failed", "BULK_PAY_FAILED", nil)
	}

	middleware.ObservePaymentsTransitioned(result.TransitionedCount)
	return h.SuccessResponse(c, fiber.StatusOK, "Bulk pay executed", result)
}

// GetSplitSummary reports allocation progress of a commission's divisions
func (h *SplitPaymentHandler) GetSplitSummary(c fiber.Ctx) error {
	commissionUUID := c.Params("uuid")
	if commissionUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Commission UUID is required", "MISSING_COMMISSION_UUID", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/commissions/:uuid/split-summary")
	defer cancel()

	result, err := h.splitPaymentFlow.SplitPaymentSummary(ctx, commissionUUID)
	if err != nil {
		if businessflow.IsCommissionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Commission not found", "COMMISSION_NOT_FOUND", nil)
		}

		log.Println("Split summary retrieval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Split summary retrieval failed", "SPLIT_SUMMARY_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Split summary retrieved successfully", result)
}
