// 文件路径: internal/repository/errors.go
// 模块说明: 这是 internal 模块里的 errors 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package repository

import "errors"

var (
	// ErrNotFound 表示查询未返回数据。
	ErrNotFound = errors.New("not found / 未找到数据")
	// ErrConflict 表示写入违反唯一约束（端口、标签、邮箱等）。
	ErrConflict = errors.New("conflict / 数据冲突")
)

// ConflictError names the column whose unique constraint was hit.
type ConflictError struct {
	Field string
	Err   error
}

func (e *ConflictError) Error() string {
	return "unique constraint on " + e.Field + " / 唯一约束冲突: " + e.Err.Error()
}

// Unwrap lets errors.Is match ErrConflict.
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
