package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/hrthis/hrthis-backend/pkg/errors"
	"github.com/hrthis/hrthis-backend/pkg/logger"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env.Error
}

func TestSuccessEnvelopes(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"hello": "world"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"hello":"world"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteCreated(rec, map[string]int{"amount": 5})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"data":{"amount":5}}`, rec.Body.String())
}

func TestWriteErrorStatusAndMessage(t *testing.T) {
	cases := []struct {
		code    pkgerrors.Code
		status  int
		message string
	}{
		{pkgerrors.CodeValidation, http.StatusBadRequest, "specific message"},
		{pkgerrors.CodeNotFound, http.StatusNotFound, "specific message"},
		{pkgerrors.CodeInsufficientFunds, http.StatusConflict, "specific message"},
		{pkgerrors.CodeOutOfStock, http.StatusConflict, "specific message"},
		{pkgerrors.CodeConcurrencyConflict, http.StatusConflict, "specific message"},
		{pkgerrors.CodeRateLimit, http.StatusTooManyRequests, "specific message"},
		{pkgerrors.CodeDependency, pkgerrors.MetadataFor(pkgerrors.CodeDependency).HTTPStatus, pkgerrors.MetadataFor(pkgerrors.CodeDependency).PublicMessage},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(context.Background(), nil, rec, pkgerrors.New(tc.code, "specific message"))

		body := decodeError(t, rec)
		assert.Equal(t, tc.status, rec.Code, tc.code)
		assert.Equal(t, string(tc.code), body.Code)
		assert.Equal(t, tc.message, body.Message, tc.code)
	}
}

func TestWriteErrorDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec,
		pkgerrors.New(pkgerrors.CodeValidation, "bad input").WithDetails(map[string]string{"field": "amount"}))
	assert.Equal(t, map[string]any{"field": "amount"}, decodeError(t, rec).Details)
}

func TestWriteErrorHidesUntypedErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf, Format: logger.FormatJSON})

	rec := httptest.NewRecorder()
	WriteError(context.Background(), logg, rec, fmt.Errorf("query: %w", errors.New("password=hunter2")))

	body := decodeError(t, rec)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeInternal), body.Code)
	assert.NotContains(t, body.Message, "hunter2")
	assert.Nil(t, body.Details)
	assert.Contains(t, buf.String(), `"request.error"`)
	assert.Contains(t, buf.String(), "hunter2", "the log keeps the full chain")
}

func TestWriteErrorLogsEntityIDs(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf, Format: logger.FormatJSON})

	err := pkgerrors.New(pkgerrors.CodeOutOfStock, "benefit is out of stock").
		WithDetails(map[string]any{"benefitId": "b-1", "userId": "u-1"})
	WriteError(context.Background(), logg, httptest.NewRecorder(), err)

	assert.Contains(t, buf.String(), `"benefit_id":"b-1"`)
	assert.Contains(t, buf.String(), `"user_id":"u-1"`)
	assert.NotContains(t, buf.String(), `"pg_code"`)
}
