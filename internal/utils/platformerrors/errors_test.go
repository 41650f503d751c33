package platformerrors_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-relay/internal/utils/platformerrors"
)

func TestAsError_KeepsInnerType(t *testing.T) {
	ctx := platformerrors.WithRequestID(context.Background(), "req-1")
	inner := platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "")

	wrapped := platformerrors.AsError(ctx, platformerrors.LayerDomain, inner, "load conversation")

	require.NotNil(t, wrapped)
	assert.Equal(t, platformerrors.ErrorTypeNotFound, wrapped.Type)
	assert.Equal(t, inner.UUID, wrapped.UUID)
	assert.Equal(t, "req-1", wrapped.RequestID)
	assert.True(t, platformerrors.IsErrorType(wrapped, platformerrors.ErrorTypeNotFound))
}

func TestAsError_PlainErrorIsInternal(t *testing.T) {
	wrapped := platformerrors.AsError(context.Background(), platformerrors.LayerDomain, errors.New("boom"), "failed")

	assert.Equal(t, platformerrors.ErrorTypeInternal, wrapped.Type)
	assert.NotEmpty(t, wrapped.UUID)
	assert.Nil(t, platformerrors.AsError(context.Background(), platformerrors.LayerDomain, nil, "noop"))
}

func TestErrorTypeToHTTPStatus(t *testing.T) {
	tests := map[platformerrors.ErrorType]int{
		platformerrors.ErrorTypeNotFound:    http.StatusNotFound,
		platformerrors.ErrorTypeValidation:  http.StatusBadRequest,
		platformerrors.ErrorTypeConflict:    http.StatusConflict,
		platformerrors.ErrorTypeExternal:    http.StatusBadGateway,
		platformerrors.ErrorTypeUnavailable: http.StatusServiceUnavailable,
		platformerrors.ErrorTypeDatabase:    http.StatusInternalServerError,
	}
	for errorType, status := range tests {
		assert.Equal(t, status, platformerrors.ErrorTypeToHTTPStatus(errorType), errorType)
	}
}
