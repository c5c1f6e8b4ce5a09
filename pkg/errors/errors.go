package errors

import "errors"

// 存储层错误分类，由 repository 包装底层错误后返回，service 通过 errors.Is 判别

// ErrConstraintViolation 违反数据库约束（唯一键、非空、检查约束、外键）
var ErrConstraintViolation = errors.New("违反数据约束")

// ErrStore 底层存储 I/O 或事务失败（非业务错误）
var ErrStore = errors.New("存储操作失败")

// StoreError 携带操作名与底层错误的存储层错误
type StoreError struct {
	Op   string
	Kind error // ErrConstraintViolation 或 ErrStore
	Err  error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

// Unwrap 同时暴露分类与原始错误
func (e *StoreError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
