package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/kinesio/internal/audit/domain"
	"github.com/smallbiznis/kinesio/internal/auth"
	"github.com/smallbiznis/kinesio/internal/authorization"
	"github.com/smallbiznis/kinesio/internal/crypto/fieldcrypt"
	expensedomain "github.com/smallbiznis/kinesio/internal/expense/domain"
	invoicedomain "github.com/smallbiznis/kinesio/internal/invoice/domain"
	patientdomain "github.com/smallbiznis/kinesio/internal/patient/domain"
	paymentdomain "github.com/smallbiznis/kinesio/internal/payment/domain"
	"github.com/smallbiznis/kinesio/internal/report"
	servicepricedomain "github.com/smallbiznis/kinesio/internal/serviceprice/domain"
	"github.com/smallbiznis/kinesio/internal/tax"
	"github.com/smallbiznis/kinesio/pkg/db/pagination"
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
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

var validationErrors = []error{
	ErrInvalidRequest,
	invoicedomain.ErrInvalidDocumentType,
	invoicedomain.ErrInvalidPaymentStatus,
	invoicedomain.ErrEmptyItems,
	invoicedomain.ErrInvalidDescription,
	invoicedomain.ErrMissingClient,
	invoicedomain.ErrInvalidClientRUT,
	invoicedomain.ErrInvalidDueDate,
	invoicedomain.ErrInvalidAmount,
	invoicedomain.ErrOverpayment,
	invoicedomain.ErrZeroTotal,
	invoicedomain.ErrInvalidDateRange,
	paymentdomain.ErrInvalidMethod,
	tax.ErrNegativeBase,
	tax.ErrInvalidQuantity,
	tax.ErrInvalidUnitPrice,
	tax.ErrInvalidDiscount,
	tax.ErrNegativeLineSubtotal,
	patientdomain.ErrInvalidID,
	patientdomain.ErrInvalidName,
	patientdomain.ErrInvalidRUT,
	patientdomain.ErrInvalidKind,
	patientdomain.ErrEmptyNotes,
	servicepricedomain.ErrInvalidName,
	servicepricedomain.ErrInvalidCategory,
	servicepricedomain.ErrInvalidBasePrice,
	servicepricedomain.ErrInvalidDuration,
	servicepricedomain.ErrInvalidID,
	expensedomain.ErrInvalidSupplier,
	expensedomain.ErrInvalidRUT,
	expensedomain.ErrInvalidCategory,
	expensedomain.ErrInvalidAmount,
	expensedomain.ErrInvalidIssueDate,
	expensedomain.ErrInvalidDateRange,
	auditdomain.ErrInvalidAction,
	auditdomain.ErrInvalidResource,
	auditdomain.ErrInvalidTimeRange,
	report.ErrInvalidMonth,
	pagination.ErrInvalidPageToken,
}

var notFoundErrors = []error{
	ErrNotFound,
	invoicedomain.ErrNotFound,
	invoicedomain.ErrPatientNotFound,
	invoicedomain.ErrServicePriceNotFound,
	patientdomain.ErrNotFound,
	servicepricedomain.ErrNotFound,
	gorm.ErrRecordNotFound,
}

var conflictErrors = []error{
	ErrConflict,
	gorm.ErrDuplicatedKey,
	invoicedomain.ErrInvoiceCancelled,
	invoicedomain.ErrInvoiceAlreadyPaid,
	patientdomain.ErrConflict,
	patientdomain.ErrAlreadyDeleted,
	patientdomain.ErrPatientDeleted,
	servicepricedomain.ErrConflict,
}

// Codes that do not follow the invalid_<field> convention.
var validationFields = map[string]string{
	"overpayment":            "amount",
	"empty_items":            "items",
	"empty_notes":            "notes",
	"missing_client":         "client",
	"negative_base_price":    "base_price",
	"negative_line_subtotal": "items",
	"invalid_page_token":     "page_token",
}

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

	if code, ok := matchAny(err, validationErrors); ok {
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

	var retention *patientdomain.RetentionPeriodError
	var notDeleted *patientdomain.NotSoftDeletedError
	switch {
	case errors.As(err, &retention):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: retention.Error(),
		}
	case errors.As(err, &notDeleted):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: notDeleted.Error(),
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidClaims):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	}

	if code, ok := matchAny(err, conflictErrors); ok {
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: code,
		}
	}
	if _, ok := matchAny(err, notFoundErrors); ok {
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	}

	switch {
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, invoicedomain.ErrNumberAllocation),
		errors.Is(err, fieldcrypt.ErrKeyNotConfigured),
		errors.Is(err, auth.ErrSecretNotDefined):
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

func classifyErrorForLog(err error) (string, int) {
	status, payload := mapError(err)
	return payload.Type, status
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// matchAny reports the code of the first sentinel err wraps.
func matchAny(err error, targets []error) (string, bool) {
	for _, target := range targets {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	return "", false
}

func validationErrorField(code string) string {
	if field, ok := validationFields[code]; ok {
		return field
	}
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
	case "overpayment":
		return "amount exceeds the outstanding balance"
	default:
		return "invalid value"
	}
}
