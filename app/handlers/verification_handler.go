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

// VerificationHandlerInterface defines the contract for verification handlers
type VerificationHandlerInterface interface {
	RecordVerification(c fiber.Ctx) error
	ReverseVerification(c fiber.Ctx) error
	SetEligibility(c fiber.Ctx) error
}

// VerificationHandler handles client-payment verification HTTP requests
type VerificationHandler struct {
	verificationFlow businessflow.VerificationFlow
	validator        *validator.Validate
}

// NewVerificationHandler creates a new verification handler
func NewVerificationHandler(verificationFlow businessflow.VerificationFlow) *VerificationHandler {
	handler := &VerificationHandler{
		verificationFlow: verificationFlow,
		validator:        validator.New(),
	}

	registerLedgerValidations(handler.validator)

	return handler
}

func (h *VerificationHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *VerificationHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// RecordVerification ingests a client-payment confirmation event
func (h *VerificationHandler) RecordVerification(c fiber.Ctx) error {
	var req dto.RecordVerificationRequest
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

	ctx, cancel := createRequestContext(c, "/api/v1/verifications")
	defer cancel()

	result, err := h.verificationFlow.RecordVerification(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsCommissionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Commission not found", "COMMISSION_NOT_FOUND", nil)
		}
		if businessflow.IsVerificationNotRequired(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Commission does not require client payment verification", "VERIFICATION_NOT_REQUIRED", nil)
		}
		if businessflow.IsInvalidInstallment(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Installment must be first or second", "INVALID_INSTALLMENT", nil)
		}
		if businessflow.IsVerificationAlreadyRecorded(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Verification already recorded for this installment", "VERIFICATION_ALREADY_RECORDED", nil)
		}

		log.Println("Verification ingestion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Verification ingestion failed", "VERIFICATION_INGESTION_FAILED", nil)
	}

	middleware.ObserveVerificationRecorded(result.Verification.Status)
	return h.SuccessResponse(c, fiber.StatusCreated, "Verification recorded successfully", result)
}

// ReverseVerification undoes a previously verified installment
func (h *VerificationHandler) ReverseVerification(c fiber.Ctx) error {
	var req dto.ReverseVerificationRequest
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

	ctx, cancel := createRequestContext(c, "/api/v1/verifications/reverse")
	defer cancel()

	result, err := h.verificationFlow.ReverseVerification(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsCommissionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Commission not found", "COMMISSION_NOT_FOUND", nil)
		}
		if businessflow.IsVerificationNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Verification record not found", "VERIFICATION_NOT_FOUND", nil)
		}
		if businessflow.IsVerificationNotReversible(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Only verified records can be reversed", "VERIFICATION_NOT_REVERSIBLE", nil)
		}

		log.Println("Verification reversal failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Verification reversal failed", "VERIFICATION_REVERSAL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Verification reversed successfully", result)
}

// SetEligibility records the external reconciliation verdict for a commission
func (h *VerificationHandler) SetEligibility(c fiber.Ctx) error {
	commissionUUID := c.Params("uuid")
	if commissionUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Commission UUID is required", "MISSING_COMMISSION_UUID", nil)
	}

	var req dto.SetEligibilityRequest
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

	ctx, cancel := createRequestContext(c, "/api/v1/commissions/:uuid/eligibility")
	defer cancel()

	result, err := h.verificationFlow.SetEligibility(ctx, commissionUUID, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsCommissionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Commission not found", "COMMISSION_NOT_FOUND", nil)
		}
		if businessflow.IsVerificationNotRequired(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Commission does not require client payment verification", "VERIFICATION_NOT_REQUIRED", nil)
		}

		log.Println("Eligibility update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Eligibility update failed", "ELIGIBILITY_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Eligibility updated successfully", result)
}
