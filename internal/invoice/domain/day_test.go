package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInvoiceRequestDueDateFormats(t *testing.T) {
	var req CreateInvoiceRequest
	require.NoError(t, json.Unmarshal([]byte(`{"invoiceType":"BOLETA","dueDate":"2026-11-30"}`), &req))
	require.NotNil(t, req.DueDate)
	assert.Equal(t, time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC), req.DueDate.Time)

	req = CreateInvoiceRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"dueDate":"2026-11-30T15:00:00-03:00"}`), &req))
	require.NotNil(t, req.DueDate)
	assert.True(t, time.Date(2026, 11, 30, 18, 0, 0, 0, time.UTC).Equal(req.DueDate.Time))

	req = CreateInvoiceRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"dueDate":null}`), &req))
	assert.Nil(t, req.DueDate)

	assert.Error(t, json.Unmarshal([]byte(`{"dueDate":"30/11/2026"}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`{"dueDate":20261130}`), &req))
}
