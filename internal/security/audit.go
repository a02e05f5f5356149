// 文件路径: internal/security/audit.go
// 模块说明: 这是 internal 模块里的 audit 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package security

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// 审计事件类型。
const (
	EventInboundCreate = "inbound.create"
	EventInboundUpdate = "inbound.update"
	EventInboundDelete = "inbound.delete"
	EventInboundImport = "inbound.import"
	EventPackCommit    = "pack.commit"
)

// Event 表示一次需要留痕的管理操作。
type Event struct {
	Kind     string
	ActorID  string
	IP       string
	Metadata map[string]any
	Occurred time.Time
}

// Recorder 记录审计事件。
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// LoggerRecorder 将审计事件写入 slog.Logger。
type LoggerRecorder struct {
	logger *slog.Logger
}

// NewLoggerRecorder 返回记录器，写入指定 logger（为空时丢弃）。
func NewLoggerRecorder(logger *slog.Logger) *LoggerRecorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LoggerRecorder{logger: logger}
}

// Record 实现 Recorder 并记录审计事件。
func (r *LoggerRecorder) Record(ctx context.Context, event Event) {
	if r == nil || r.logger == nil {
		return
	}
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}
	r.logger.InfoContext(ctx, "audit event",
		"kind", event.Kind,
		"actor_id", event.ActorID,
		"ip", event.IP,
		"metadata", event.Metadata,
		"occurred", event.Occurred.Format(time.RFC3339Nano),
	)
}

// MemoryRecorder keeps events in memory; handy for tests and the CLI summary.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event
}

// Record appends event.
func (r *MemoryRecorder) Record(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *MemoryRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

type actorKey struct{}

// WithActor stores the authenticated admin subject and client IP on ctx.
func WithActor(ctx context.Context, actorID, ip string) context.Context {
	return context.WithValue(ctx, actorKey{}, [2]string{actorID, ip})
}

// ActorFrom returns what WithActor stored, or empty strings.
func ActorFrom(ctx context.Context) (actorID, ip string) {
	if v, ok := ctx.Value(actorKey{}).([2]string); ok {
		return v[0], v[1]
	}
	return "", ""
}
