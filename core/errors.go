package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），通过 errors.As 穿透 fmt.Errorf 的包装
//
// 使用场景：
//   - 参数校验错误：INVALID_INPUT（ValidationError，可直接透传给调用方）
//   - 存储故障：UNAVAILABLE（StoreFailure，在编排层被捕获并降级为热门兜底）
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "INVALID_INPUT"）
	Message string // 错误消息（对调用方安全，不含底层细节）
	Module  string // 模块名称（如 "store", "validation"）
	Field   string // 校验失败的字段（仅 INVALID_INPUT）
	Err     error  // 底层原因（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 返回底层原因，便于 errors.Is / errors.As。
func (e *DomainError) Unwrap() error {
	return e.Err
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// NewValidationError 创建参数校验错误。message 会原样返回给调用方。
func NewValidationError(field, message string) *DomainError {
	return &DomainError{
		Module:  ModuleValidation,
		Code:    ErrorCodeInvalidInput,
		Field:   field,
		Message: fmt.Sprintf("invalid %s: %s", field, message),
	}
}

// NewStoreFailure 包装特征存储的 I/O 错误。
func NewStoreFailure(op string, err error) *DomainError {
	return &DomainError{
		Module:  ModuleStore,
		Code:    ErrorCodeUnavailable,
		Message: "store: " + op + " failed",
		Err:     err,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore      = "store"      // 存储模块
	ModuleValidation = "validation" // 参数校验
	ModuleRecommend  = "recommend"  // 推荐编排
	ModuleSnapshot   = "snapshot"   // 快照
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return hasCode(err, ErrorCodeNotSupported)
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	return hasCode(err, ErrorCodeUnavailable)
}

// IsValidation 检查错误是否为参数校验错误
func IsValidation(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}

// IsStoreFailure 检查错误是否为存储故障
func IsStoreFailure(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Module == ModuleStore && domainErr.Code == ErrorCodeUnavailable
}
