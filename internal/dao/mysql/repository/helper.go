package repository

import (
	"errors"
	"strings"

	"social_relay/pkg/errorx"

	"gorm.io/gorm"
)

// wrapDBError 按 gorm 错误类型映射业务错误码
//   - ErrRecordNotFound -> CodeNotFound
//   - 唯一键冲突 -> CodeConflict
//   - 其他 -> CodePersistence
func wrapDBError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errorx.Wrap(err, classify(err), msg)
}

// wrapDBErrorf 同 wrapDBError，支持格式化消息
func wrapDBErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errorx.Wrapf(err, classify(err), format, args...)
}

func classify(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errorx.CodeNotFound
	case isUniqueViolation(err):
		return errorx.CodeConflict
	default:
		return errorx.CodePersistence
	}
}

// isUniqueViolation 依赖 gorm.Config.TranslateError，驱动未翻译时按错误文本兜底
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
