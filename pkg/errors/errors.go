package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ── 错误类别 ──
// 业务错误均归属于以下类别之一，由 handler 统一映射为 HTTP 状态码

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrWriteFailed         = errors.New("write failed")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUnauthenticated     = errors.New("unauthenticated")
)

// Error 带类别的业务错误
// Message 面向调用方，可直接返回给客户端
type Error struct {
	Kind    error
	Message string
}

// New 创建业务错误
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap 使 errors.Is(err, ErrNotFound) 等类别判断成立
func (e *Error) Unwrap() error {
	return e.Kind
}

// Message 提取可展示的错误信息；非业务错误返回空串
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
