package service

import "errors"

// ValidationError 表示请求参数未通过业务校验。
// handler 层据此返回 400 而非 500。
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidationError 创建一个 ValidationError。
func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

// ErrForbidden 表示当前用户无权操作目标资源。
var ErrForbidden = errors.New("无权操作该资源")
