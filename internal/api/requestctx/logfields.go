package requestctx

import (
	"context"
	"log/slog"
	"sync"
)

// LogFields 收集请求处理过程中补充的日志字段，由访问日志中间件在请求结束时统一输出。
type LogFields struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

type logFieldsKey struct{}

// WithLogFields attaches an empty field bag to ctx.
func WithLogFields(ctx context.Context) (context.Context, *LogFields) {
	fields := &LogFields{}
	return context.WithValue(ctx, logFieldsKey{}, fields), fields
}

// AddLogAttrs 给当前请求的访问日志追加字段；没有字段袋时忽略。
func AddLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	if ctx == nil || len(attrs) == 0 {
		return
	}
	fields, _ := ctx.Value(logFieldsKey{}).(*LogFields)
	if fields == nil {
		return
	}
	fields.mu.Lock()
	fields.attrs = append(fields.attrs, attrs...)
	fields.mu.Unlock()
}

// Attrs returns a copy of the collected fields.
func (f *LogFields) Attrs() []slog.Attr {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]slog.Attr(nil), f.attrs...)
}
