// 文件路径: internal/api/middleware/logging.go
// 模块说明: 管理端访问日志。每个请求结束时输出一条结构化日志，处理器通过 requestctx.AddLogAttrs
// 补充 plan_id、tag 等业务字段。
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/creamcroissant/inboundpanel/internal/api/requestctx"
)

// LoggingConfig 日志中间件配置
type LoggingConfig struct {
	Logger        *slog.Logger
	SlowThreshold time.Duration // 超过此耗时记为 WARN
	SkipPaths     []string
}

// routeParams 是会被带进访问日志的 chi 路径参数，key 为参数名，value 为日志字段名。
var routeParams = map[string]string{
	"id":   "resource_id",
	"name": "pack",
}

// StructuredLogger 结构化访问日志中间件
func StructuredLogger(config LoggingConfig) func(http.Handler) http.Handler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.SlowThreshold == 0 {
		config.SlowThreshold = 500 * time.Millisecond
	}

	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID == "" {
				requestID = "unknown"
			}

			ctx, fields := requestctx.WithLogFields(r.Context())
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(ww, r.WithContext(ctx))

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			attrs := []slog.Attr{
				slog.String("request_id", requestID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", duration),
				slog.String("client_ip", getClientIP(r)),
				slog.Int("bytes", ww.BytesWritten()),
			}
			if route := routePattern(r); route != "unmatched" {
				attrs = append(attrs, slog.String("route", route))
			}
			attrs = append(attrs, routeParamAttrs(r)...)
			if strict := r.URL.Query().Get("strict"); strict != "" {
				attrs = append(attrs, slog.String("strict", strict))
			}
			if lang := ww.Header().Get("Content-Language"); lang != "" {
				attrs = append(attrs, slog.String("lang", lang))
			}
			attrs = append(attrs, fields.Attrs()...)

			level, msg := slog.LevelInfo, "request completed"
			switch {
			case status >= 500:
				level, msg = slog.LevelError, "request failed"
			case status >= 400:
				level, msg = slog.LevelWarn, "request rejected"
			case duration > config.SlowThreshold:
				level, msg = slog.LevelWarn, "slow request"
				attrs = append(attrs, slog.Duration("slow_threshold", config.SlowThreshold))
			}
			config.Logger.LogAttrs(r.Context(), level, msg, attrs...)
		})
	}
}

func routeParamAttrs(r *http.Request) []slog.Attr {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return nil
	}
	var attrs []slog.Attr
	for i, key := range rctx.URLParams.Keys {
		if field, ok := routeParams[key]; ok && i < len(rctx.URLParams.Values) {
			attrs = append(attrs, slog.String(field, rctx.URLParams.Values[i]))
		}
	}
	return attrs
}
