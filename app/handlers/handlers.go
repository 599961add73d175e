// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	businessflow "github.com/novinmelk/back-office/business_flow"
)

var (
	commissionPeriodPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
	paymentPeriodPattern    = regexp.MustCompile(`^\d{4}-\d{2}-P\d+$`)
)

// registerLedgerValidations wires the period format rules into a validator
// instance. Every handler registers the same set so request structs can share
// tags.
func registerLedgerValidations(v *validator.Validate) {
	_ = v.RegisterValidation("commission_period", func(fl validator.FieldLevel) bool {
		return commissionPeriodPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("payment_period", func(fl validator.FieldLevel) bool {
		return paymentPeriodPattern.MatchString(fl.Field().String())
	})
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "uuid":
		return err.Field() + " must be a valid UUID"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	case "commission_period":
		return err.Field() + " must match YYYY-MM"
	case "payment_period":
		return err.Field() + " must match YYYY-MM-P{part}"
	default:
		return err.Field() + " is invalid"
	}
}

// createRequestContext builds the context business flows run under. The
// caller must defer the returned cancel function.
func createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "endpoint", endpoint)

	return ctx, cancel
}

// clientMetadata extracts the audit metadata of the incoming request
func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(c.Get("X-Request-ID"))
	return metadata
}
