// 文件路径: internal/service/inbound.go
// 模块说明: 这是 internal 模块里的 inbound 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/creamcroissant/inboundpanel/internal/inbound"
	"github.com/creamcroissant/inboundpanel/internal/repository"
	"github.com/creamcroissant/inboundpanel/internal/security"
)

// InboundService 提供入站配置的增删改查、导入导出与克隆。
type InboundService interface {
	List(ctx context.Context, filter repository.InboundFilter) ([]InboundView, error)
	// Count reports how many inbounds match filter regardless of paging.
	Count(ctx context.Context, filter repository.InboundFilter) (int64, error)
	Get(ctx context.Context, id int64) (*InboundView, error)
	CreateFromDraft(ctx context.Context, form []byte, opts WriteOptions) (*InboundView, error)
	Update(ctx context.Context, id int64, form []byte, opts WriteOptions) (*InboundView, error)
	Delete(ctx context.Context, id int64) error
	Import(ctx context.Context, document []byte, opts WriteOptions) (*ImportResult, error)
	Export(ctx context.Context) (*ExportResult, error)
	Clone(ctx context.Context, id int64) (*InboundView, error)
	Draft(ctx context.Context, id int64) (*inbound.EditableDraft, error)
}

// InboundView 是管理端看到的入站：导出字段加上 id 与时间戳。
type InboundView struct {
	ID int64 `json:"id"`
	inbound.ExportedProfile
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// WriteOptions tunes create, update and import.
type WriteOptions struct {
	// Strict rejects protocol/network/security values that would be replaced by defaults.
	Strict bool
}

// ImportResult 汇总一次批量导入。
type ImportResult struct {
	Total    int      `json:"total"`
	Success  int      `json:"success"`
	Failures []string `json:"failures"`
}

// ExportResult carries the export document and its suggested filename.
type ExportResult struct {
	Filename string                 `json:"filename"`
	Document inbound.ExportDocument `json:"document"`
}

// InboundServiceOptions 汇总入站服务的可选依赖。
type InboundServiceOptions struct {
	AppName string
	Version string
	Logger  *slog.Logger
	Metrics *Metrics
	Audit   security.Recorder
	Now     func() time.Time
}

type inboundService struct {
	inbounds repository.InboundRepository
	appName  string
	version  string
	logger   *slog.Logger
	metrics  *Metrics
	audit    security.Recorder
	now      func() time.Time
}

// NewInboundService 组装入站服务。
func NewInboundService(inbounds repository.InboundRepository, opts InboundServiceOptions) InboundService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Audit == nil {
		opts.Audit = security.NewLoggerRecorder(opts.Logger)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AppName == "" {
		opts.AppName = "inboundpanel"
	}
	return &inboundService{
		inbounds: inbounds,
		appName:  opts.AppName,
		version:  opts.Version,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		audit:    opts.Audit,
		now:      opts.Now,
	}
}

func (s *inboundService) ready() error {
	if s == nil || s.inbounds == nil {
		return fmt.Errorf("inbound service not configured / 入站服务未配置")
	}
	return nil
}

func (s *inboundService) List(ctx context.Context, filter repository.InboundFilter) ([]InboundView, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	recs, err := s.inbounds.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list inbounds: %w", err)
	}
	profiles, err := fromRecords(recs)
	if err != nil {
		return nil, err
	}
	views := make([]InboundView, 0, len(profiles))
	for _, p := range profiles {
		views = append(views, newInboundView(p))
	}
	return views, nil
}

func (s *inboundService) Count(ctx context.Context, filter repository.InboundFilter) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	n, err := s.inbounds.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count inbounds: %w", err)
	}
	return n, nil
}

func (s *inboundService) Get(ctx context.Context, id int64) (*InboundView, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	view := newInboundView(p)
	return &view, nil
}

func (s *inboundService) CreateFromDraft(ctx context.Context, form []byte, opts WriteOptions) (*InboundView, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	item, err := ParseDraftForm(form)
	if err != nil {
		return nil, err
	}
	if opts.Strict {
		if err := strictCheck(item); err != nil {
			return nil, err
		}
	}
	existing, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	p := inbound.Compose(item, 0, inbound.SeedAllocationContext(existing))
	if err := validateProfile(p); err != nil {
		return nil, err
	}
	created, err := s.persist(ctx, p, SourceForm)
	if err != nil {
		return nil, err
	}
	view := newInboundView(created)
	return &view, nil
}

// Update 针对除自身外的其他入站重新组装；显式请求的端口或标签被占用时返回冲突错误，
// 而不是悄悄换成别的值。缺省的端口和标签沿用当前值。
func (s *inboundService) Update(ctx context.Context, id int64, form []byte, opts WriteOptions) (*InboundView, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	item, err := ParseDraftForm(form)
	if err != nil {
		return nil, err
	}
	if opts.Strict {
		if err := strictCheck(item); err != nil {
			return nil, err
		}
	}
	if _, ok := inbound.RequestedPort(item); !ok {
		item["port"] = []byte(strconv.Itoa(current.Port))
	}
	if inbound.RequestedTag(item) == "" {
		item["tag"] = []byte(strconv.Quote(current.Tag))
	}

	all, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	others := make([]inbound.Profile, 0, len(all))
	for _, p := range all {
		if p.ID != id {
			others = append(others, p)
		}
	}

	wantPort, _ := inbound.RequestedPort(item)
	wantTag := inbound.RequestedTag(item)
	p := inbound.Compose(item, 0, inbound.SeedAllocationContext(others))
	if p.Port != wantPort {
		return nil, fmt.Errorf("%w: %d", ErrPortConflict, wantPort)
	}
	if p.Tag != wantTag {
		return nil, fmt.Errorf("%w: %s", ErrTagConflict, wantTag)
	}
	if err := validateProfile(p); err != nil {
		return nil, err
	}

	p.ID = current.ID
	p.CreatedAt = current.CreatedAt
	rec, err := toRecord(p)
	if err != nil {
		return nil, err
	}
	if err := s.inbounds.Update(ctx, rec); err != nil {
		return nil, mapRepoError(err)
	}
	p.UpdatedAt = rec.UpdatedAt

	s.logger.InfoContext(ctx, "inbound updated", "id", p.ID, "tag", p.Tag, "port", p.Port, "request_id", chiMiddleware.GetReqID(ctx))
	s.record(ctx, security.EventInboundUpdate, map[string]any{"id": p.ID, "tag": p.Tag, "port": p.Port})
	view := newInboundView(p)
	return &view, nil
}

func (s *inboundService) Delete(ctx context.Context, id int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.inbounds.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	s.logger.InfoContext(ctx, "inbound deleted", "id", id, "request_id", chiMiddleware.GetReqID(ctx))
	s.record(ctx, security.EventInboundDelete, map[string]any{"id": id})
	return nil
}

// Import 解析文档后逐条组装并持久化；单条失败记为 "Item <n>: <原因>"，不影响其他条目。
//
// Every item shares one allocation context seeded from a single snapshot, so the batch is
// collision-free against itself and against what was stored when it started. A cancelled
// ctx stops the loop; items already stored stay stored.
func (s *inboundService) Import(ctx context.Context, document []byte, opts WriteOptions) (*ImportResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	candidates := inbound.ParseImportDocument(document)
	result := &ImportResult{Total: len(candidates), Failures: []string{}}
	if len(candidates) == 0 {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	existing, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	alloc := inbound.SeedAllocationContext(existing)

	for i, item := range candidates {
		if err := ctx.Err(); err != nil {
			s.logger.WarnContext(ctx, "inbound import interrupted", "processed", i, "total", len(candidates), "error", err)
			return result, err
		}
		if opts.Strict {
			if err := strictCheck(item); err != nil {
				s.importFailure(result, i, err)
				continue
			}
		}
		p := inbound.Compose(item, i, alloc)
		if err := validateProfile(p); err != nil {
			s.importFailure(result, i, err)
			continue
		}
		if _, err := s.persist(ctx, p, SourceImport); err != nil {
			s.importFailure(result, i, err)
			continue
		}
		result.Success++
	}

	s.logger.InfoContext(ctx, "inbound import finished",
		"total", result.Total,
		"success", result.Success,
		"failed", len(result.Failures),
		"request_id", chiMiddleware.GetReqID(ctx),
	)
	s.record(ctx, security.EventInboundImport, map[string]any{"total": result.Total, "success": result.Success, "failed": len(result.Failures)})
	return result, nil
}

func (s *inboundService) importFailure(result *ImportResult, index int, err error) {
	result.Failures = append(result.Failures, fmt.Sprintf("Item %d: %v", index+1, err))
	s.metrics.importFailed()
}

func (s *inboundService) Export(ctx context.Context) (*ExportResult, error) {
	profiles, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	at := s.now().UTC()
	doc := inbound.ExportDocument{
		App:        s.appName,
		Version:    s.version,
		ExportedAt: at,
		Inbounds:   make([]inbound.ExportedProfile, 0, len(profiles)),
	}
	for _, p := range profiles {
		doc.Inbounds = append(doc.Inbounds, inbound.ToExportProfile(p))
	}
	return &ExportResult{Filename: inbound.ExportFilename(at), Document: doc}, nil
}

func (s *inboundService) Clone(ctx context.Context, id int64) (*InboundView, error) {
	source, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	existing, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	payload := inbound.BuildClonePayload(source, existing)
	p := inbound.Compose(payload.Candidate(), 0, inbound.SeedAllocationContext(existing))
	created, err := s.persist(ctx, p, SourceClone)
	if err != nil {
		return nil, err
	}
	view := newInboundView(created)
	return &view, nil
}

func (s *inboundService) Draft(ctx context.Context, id int64) (*inbound.EditableDraft, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	draft := inbound.ToEditableDraft(p)
	return &draft, nil
}

func (s *inboundService) load(ctx context.Context, id int64) (inbound.Profile, error) {
	if err := s.ready(); err != nil {
		return inbound.Profile{}, err
	}
	rec, err := s.inbounds.FindByID(ctx, id)
	if err != nil {
		return inbound.Profile{}, mapRepoError(err)
	}
	return fromRecord(rec)
}

func (s *inboundService) snapshot(ctx context.Context) ([]inbound.Profile, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	recs, err := s.inbounds.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load inbound snapshot: %w", err)
	}
	return fromRecords(recs)
}

// persist 写入一个已组装好的 Profile，并回填 id 与时间戳。
func (s *inboundService) persist(ctx context.Context, p inbound.Profile, source string) (inbound.Profile, error) {
	rec, err := toRecord(p)
	if err != nil {
		return inbound.Profile{}, err
	}
	if err := s.inbounds.Create(ctx, rec); err != nil {
		mapped := mapRepoError(err)
		if errors.Is(mapped, ErrPortConflict) || errors.Is(mapped, ErrTagConflict) {
			s.logger.WarnContext(ctx, "inbound write lost a race", "tag", p.Tag, "port", p.Port, "error", err)
		}
		return inbound.Profile{}, mapped
	}
	p.ID = rec.ID
	p.CreatedAt = rec.CreatedAt
	p.UpdatedAt = rec.UpdatedAt

	s.metrics.profileCreated(source)
	s.logger.InfoContext(ctx, "inbound created",
		"id", p.ID,
		"tag", p.Tag,
		"port", p.Port,
		"protocol", p.Protocol,
		"source", source,
		"request_id", chiMiddleware.GetReqID(ctx),
	)
	if source != SourceImport && source != SourcePack {
		s.record(ctx, security.EventInboundCreate, map[string]any{"id": p.ID, "tag": p.Tag, "port": p.Port, "source": source})
	}
	return p, nil
}

func (s *inboundService) record(ctx context.Context, kind string, metadata map[string]any) {
	actor, ip := security.ActorFrom(ctx)
	s.audit.Record(ctx, security.Event{Kind: kind, ActorID: actor, IP: ip, Metadata: metadata})
}

func newInboundView(p inbound.Profile) InboundView {
	return InboundView{
		ID:              p.ID,
		ExportedProfile: inbound.ToExportProfile(p),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
