package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"support-relay/internal/utils/platformerrors"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Code          string `json:"code"`
	Error         string `json:"error"`
	Message       string `json:"message,omitempty"`
	ErrorInstance error  `json:"-"`
	RequestID     string `json:"request_id,omitempty"`
}

// HandleError maps err to a status code and writes a client-safe body.
// Only validation, not found and conflict messages are echoed back.
func HandleError(reqCtx *gin.Context, err error, message string) {
	var platformErr *platformerrors.PlatformError
	if errors.As(err, &platformErr) {
		statusCode := platformerrors.ErrorTypeToHTTPStatus(platformErr.Type)
		errResp := ErrorResponse{
			Code:          platformErr.UUID,
			Error:         string(platformErr.Type),
			Message:       message,
			ErrorInstance: platformErr,
			RequestID:     platformErr.RequestID,
		}
		switch platformErr.Type {
		case platformerrors.ErrorTypeValidation, platformerrors.ErrorTypeNotFound, platformerrors.ErrorTypeConflict:
			errResp.Message = platformErr.Message
		}
		reqCtx.AbortWithStatusJSON(statusCode, errResp)
		return
	}

	reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Code:          "internal",
		Error:         string(platformerrors.ErrorTypeInternal),
		Message:       message,
		ErrorInstance: err,
		RequestID:     platformerrors.RequestIDFromContext(reqCtx.Request.Context()),
	})
}

// HandleNewError creates a handler-layer error of errorType and writes it.
func HandleNewError(reqCtx *gin.Context, errorType platformerrors.ErrorType, message string, uuid string) {
	err := platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerHandler, errorType, message, nil, uuid)
	HandleError(reqCtx, err, message)
}
