package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/smallbiznis/kinesio/internal/auth"
	"github.com/smallbiznis/kinesio/internal/authorization"
	"github.com/smallbiznis/kinesio/internal/crypto/fieldcrypt"
	invoicedomain "github.com/smallbiznis/kinesio/internal/invoice/domain"
	patientdomain "github.com/smallbiznis/kinesio/internal/patient/domain"
	paymentdomain "github.com/smallbiznis/kinesio/internal/payment/domain"
	servicepricedomain "github.com/smallbiznis/kinesio/internal/serviceprice/domain"
	"github.com/smallbiznis/kinesio/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		err      error
		status   int
		typ      string
		wantCode string
	}{
		{invoicedomain.ErrInvalidClientRUT, http.StatusBadRequest, "validation_error", "invalid_client_rut"},
		{fmt.Errorf("create: %w", invoicedomain.ErrZeroTotal), http.StatusBadRequest, "validation_error", "invalid_total"},
		{fmt.Errorf("register: %w", paymentdomain.ErrInvalidMethod), http.StatusBadRequest, "validation_error", "invalid_payment_method"},
		{pagination.ErrInvalidPageToken, http.StatusBadRequest, "validation_error", "invalid_page_token"},
		{servicepricedomain.ErrNotFound, http.StatusNotFound, "not_found", ""},
		{gorm.ErrRecordNotFound, http.StatusNotFound, "not_found", ""},
		{invoicedomain.ErrPatientNotFound, http.StatusNotFound, "not_found", ""},
		{servicepricedomain.ErrConflict, http.StatusConflict, "conflict", ""},
		{gorm.ErrDuplicatedKey, http.StatusConflict, "conflict", ""},
		{invoicedomain.ErrInvoiceCancelled, http.StatusConflict, "conflict", ""},
		{patientdomain.ErrAlreadyDeleted, http.StatusConflict, "conflict", ""},
		{auth.ErrInvalidToken, http.StatusUnauthorized, "unauthorized", ""},
		{authorization.ErrForbidden, http.StatusForbidden, "forbidden", ""},
		{fieldcrypt.ErrKeyNotConfigured, http.StatusServiceUnavailable, "service_unavailable", ""},
		{invoicedomain.ErrNumberAllocation, http.StatusServiceUnavailable, "service_unavailable", ""},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
	}
	for _, tc := range cases {
		status, payload := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.typ, payload.Type, tc.err.Error())
		if tc.wantCode != "" {
			if assert.Len(t, payload.Errors, 1) {
				assert.Equal(t, tc.wantCode, payload.Errors[0].Code)
			}
		}
	}
}

func TestMapErrorRetentionMessage(t *testing.T) {
	err := fmt.Errorf("purge: %w", &patientdomain.NotSoftDeletedError{PatientID: 5})
	status, payload := mapError(err)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, payload.Message, "has not been soft-deleted")
}

func TestValidationErrorField(t *testing.T) {
	assert.Equal(t, "client_rut", validationErrorField("invalid_client_rut"))
	assert.Equal(t, "amount", validationErrorField("overpayment"))
	assert.Equal(t, "request", validationErrorField("invalid_request"))
	assert.Equal(t, "", validationErrorField("something"))
}
