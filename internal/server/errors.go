package server

import (
	"errors"
	"net/http"
	"strings"

	billingperioddomain "github.com/flowglad/flowglad-sub009/internal/billingperiod/domain"
	discountdomain "github.com/flowglad/flowglad-sub009/internal/discount/domain"
	feecalculationdomain "github.com/flowglad/flowglad-sub009/internal/feecalculation/domain"
	invoicedomain "github.com/flowglad/flowglad-sub009/internal/invoice/domain"
	"github.com/flowglad/flowglad-sub009/internal/lock"
	"github.com/flowglad/flowglad-sub009/internal/money"
	organizationdomain "github.com/flowglad/flowglad-sub009/internal/organization/domain"
	organizationservice "github.com/flowglad/flowglad-sub009/internal/organization/service"
	paymentdomain "github.com/flowglad/flowglad-sub009/internal/payment/domain"
	pricedomain "github.com/flowglad/flowglad-sub009/internal/price/domain"
	referencedomain "github.com/flowglad/flowglad-sub009/internal/reference/domain"
	subscriptiondomain "github.com/flowglad/flowglad-sub009/internal/subscription/domain"
	taxdomain "github.com/flowglad/flowglad-sub009/internal/tax/domain"
	"github.com/flowglad/flowglad-sub009/pkg/db/pagination"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if code, ok := validationErrorCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, organizationservice.ErrOrganizationExists),
		errors.Is(err, paymentdomain.ErrInvalidStatus):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, lock.ErrLockNotAcquired),
		errors.Is(err, taxdomain.ErrEngineNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog reports the response type and a stable code for the request log.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationErrors = []error{
	ErrInvalidRequest,
	money.ErrInvalidPercentage,
	money.ErrInvalidAmount,
	referencedomain.ErrInvalidCountryCode,
	organizationdomain.ErrInvalidName,
	organizationdomain.ErrInvalidCountry,
	organizationdomain.ErrInvalidOrganization,
	organizationdomain.ErrInvalidFeePercentage,
	organizationdomain.ErrInvalidContractType,
	organizationdomain.ErrInvalidFreeTier,
	feecalculationdomain.ErrInvalidOwner,
	feecalculationdomain.ErrInvalidID,
	feecalculationdomain.ErrMissingLineItems,
	feecalculationdomain.ErrOrganizationScope,
	discountdomain.ErrInvalidDiscount,
	discountdomain.ErrInvalidOwner,
	paymentdomain.ErrInvalidRefundAmount,
	paymentdomain.ErrMissingFeeContext,
	taxdomain.ErrMissingAddress,
	taxdomain.ErrInvalidReversal,
	pagination.ErrInvalidPageToken,
}

// validationErrorCode returns the sentinel code when err belongs to the
// validation class.
func validationErrorCode(err error) (string, bool) {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	return "", false
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, organizationdomain.ErrNotFound),
		errors.Is(err, feecalculationdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, pricedomain.ErrNotFound),
		errors.Is(err, pricedomain.ErrPurchaseNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, billingperioddomain.ErrNotFound),
		errors.Is(err, subscriptiondomain.ErrNotFound),
		errors.Is(err, discountdomain.ErrNotFound),
		errors.Is(err, discountdomain.ErrRedemptionNotFound),
		errors.Is(err, referencedomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_refund_amount":
		return "refund amount must be positive and no greater than the refundable amount"
	case "payment_missing_fee_context":
		return "payment has neither a checkout session nor a billing period"
	default:
		return "invalid value"
	}
}
