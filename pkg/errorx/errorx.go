// Package errorx 定义带业务错误码的错误类型
// 投递层的错误分类（参数校验、冲突、越权、持久化）都映射到这里的错误码
package errorx

import (
	"errors"
	"fmt"
)

// CodeError 带业务错误码的错误，支持 errors.Is/errors.As 向下追溯 cause
type CodeError struct {
	Code  int    // 业务错误码
	Msg   string // 返回给调用方的消息
	cause error  // 被包装的底层错误
}

// Error 存在底层错误时返回 "消息: 底层错误"
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

// Unwrap 返回底层错误
func (e *CodeError) Unwrap() error {
	return e.cause
}

// New 创建一个新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

// Newf 创建一个带格式化消息的 CodeError
func Newf(code int, format string, args ...any) *CodeError {
	return &CodeError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误
// 用法: errorx.Wrap(err, CodePersistence, "保存消息失败")
func Wrap(err error, code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg, cause: err}
}

// Wrapf 包装底层错误，支持格式化消息
func Wrapf(err error, code int, format string, args ...any) *CodeError {
	return &CodeError{Code: code, Msg: fmt.Sprintf(format, args...), cause: err}
}

// GetCode 提取业务错误码，非 CodeError 返回 CodeServerBusy
func GetCode(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeServerBusy
}

// IsCode 判断错误链上是否存在指定错误码的 CodeError
func IsCode(err error, code int) bool {
	var codeErr *CodeError
	return errors.As(err, &codeErr) && codeErr.Code == code
}

// 业务状态码
const (
	CodeSuccess      = 1000 // 成功
	CodeInvalidParam = 1001 // 请求参数错误（ValidationError）
	CodeServerBusy   = 1005 // 服务繁忙
	CodeUnauthorized = 1006 // 未认证
	CodeForbidden    = 1007 // 无权执行该操作（AuthorizationError）
	CodeNotFound     = 1008 // 资源不存在
	CodeConflict     = 1009 // 状态冲突（ConflictError）
	CodeDBError      = 1010 // 数据库错误
	CodeCacheError   = 1011 // 缓存错误

	// CodePersistence 持久化失败（PersistenceError），与数据库错误共用错误码
	CodePersistence = CodeDBError
)

var (
	ErrInvalidParam = New(CodeInvalidParam, "请求参数错误")
	ErrServerBusy   = New(CodeServerBusy, "服务繁忙")
	ErrForbidden    = New(CodeForbidden, "无权执行该操作")
)

// IsNotFound 检查错误是否为"未找到"类型
func IsNotFound(err error) bool {
	if IsCode(err, CodeNotFound) {
		return true
	}
	return err != nil && err.Error() == "record not found"
}

// IsConflict 检查错误是否为状态冲突
func IsConflict(err error) bool {
	return IsCode(err, CodeConflict)
}
