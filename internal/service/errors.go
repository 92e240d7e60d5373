package service

import (
	"errors"
	"fmt"
)

// 业务层通用错误，handler 据此映射到统一错误信封的 code 与状态码。
var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrRoomNotPublished    = errors.New("room not published")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrConflict            = errors.New("conflict")
	ErrDuplicateResponse   = errors.New("participant already answered this question")
)

// ValidationError 携带字段级明细，对应 VALIDATION_ERROR。
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Fields)
}

func invalidField(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
