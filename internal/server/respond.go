package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/fm-yodai/flash-vote/internal/mw"
	"github.com/fm-yodai/flash-vote/internal/service"
)

// 统一错误信封的 code 取值。
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

// abortError 写出 {error:{code,message,details}} 信封。details 里始终带
// requestId，与服务端日志行上的 request_id 一致。
func abortError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	if details == nil {
		details = map[string]interface{}{}
	}
	details["requestId"] = mw.GetRequestID(c)
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{
		"code":    code,
		"message": message,
		"details": details,
	}})
}

// serviceError 把业务层错误映射到信封。校验与前置条件错误原样透出，
// 其余一律归为 INTERNAL_ERROR：对调用方只给关联 id，细节留在日志里。
func serviceError(c *gin.Context, err error, logMsg string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		details := make(map[string]interface{}, len(verr.Fields))
		for k, v := range verr.Fields {
			details[k] = v
		}
		abortError(c, http.StatusBadRequest, CodeValidation, "invalid request body", details)
	case errors.Is(err, service.ErrRoomNotFound):
		abortError(c, http.StatusNotFound, CodeNotFound, "room not found", nil)
	case errors.Is(err, service.ErrQuestionNotFound):
		abortError(c, http.StatusNotFound, CodeNotFound, "question not found", nil)
	case errors.Is(err, service.ErrRoomNotPublished):
		abortError(c, http.StatusNotFound, CodeNotFound, "room not found", nil)
	case errors.Is(err, service.ErrParticipantNotFound):
		abortError(c, http.StatusNotFound, CodeNotFound, "participant not found", nil)
	case errors.Is(err, service.ErrConflict):
		abortError(c, http.StatusConflict, CodeConflict, "illegal state transition", nil)
	case errors.Is(err, service.ErrDuplicateResponse):
		abortError(c, http.StatusConflict, CodeConflict, "participant already answered this question", nil)
	default:
		log.Error().Err(err).Str("request_id", mw.GetRequestID(c)).Msg(logMsg)
		abortError(c, http.StatusInternalServerError, CodeInternal, "internal server error", nil)
	}
}
