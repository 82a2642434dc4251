package common

import (
	"errors"
	"fmt"
)

// AppError 应用级错误结构
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code, message string, err error) error {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewError 创建新错误
func NewError(code, message string) error {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// CodeOf 返回错误链上第一个 AppError 的错误码，没有则返回空串
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsCode 判断错误链上是否带有指定错误码
func IsCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// MessageOf 返回面向用户的错误信息：AppError 取 Message，其余取 Error()
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// 错误码常量
const (
	ErrCodeGitHubAPI    = "GITHUB_API_ERROR"
	ErrCodeRateLimit    = "GITHUB_RATE_LIMIT"
	ErrCodeDatabase     = "DATABASE_ERROR"
	ErrCodeAIProcessing = "AI_PROCESSING_ERROR"
	ErrCodeNotification = "NOTIFICATION_ERROR"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeInvalidURL   = "INVALID_URL"
	ErrCodeConfig       = "CONFIG_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInternal     = "INTERNAL_ERROR"
)
