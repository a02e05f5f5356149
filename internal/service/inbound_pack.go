// 文件路径: internal/service/inbound_pack.go
// 模块说明: 这是 internal 模块里的 inbound_pack 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package service

import (
	"context"
	"fmt"
	"strings"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/creamcroissant/inboundpanel/internal/inbound"
	"github.com/creamcroissant/inboundpanel/internal/preset"
	"github.com/creamcroissant/inboundpanel/internal/repository"
	"github.com/creamcroissant/inboundpanel/internal/security"
)

// PackService 列出预设包，并以预览或提交方式应用它们。
type PackService interface {
	Packs() []PackSummary
	Apply(ctx context.Context, name string, req inbound.PackRequest) (*PackResult, error)
}

// PackSummary 是预设包列表里的一项。
type PackSummary struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Entries     int      `json:"entries"`
	Protocols   []string `json:"protocols"`
}

// PackResult is the response of one pack invocation. A dry run fills Planned only;
// a commit fills Created and Assignment.
type PackResult struct {
	PlanID     string                    `json:"planId"`
	Pack       string                    `json:"pack"`
	DryRun     bool                      `json:"dryRun"`
	Planned    []inbound.ExportedProfile `json:"planned,omitempty"`
	Created    []InboundView             `json:"created,omitempty"`
	Warnings   []string                  `json:"warnings,omitempty"`
	Assignment *PackAssignment           `json:"assignment,omitempty"`
}

// PackAssignment 报告实际分配到的用户/分组数量以及原始请求的 id 列表。
type PackAssignment struct {
	AssignedUsers     int     `json:"assignedUsers"`
	AssignedGroups    int     `json:"assignedGroups"`
	RequestedUserIDs  []int64 `json:"requestedUserIds"`
	RequestedGroupIDs []int64 `json:"requestedGroupIds"`
}

type packService struct {
	core        *inboundService
	memberships repository.MembershipRepository
	catalog     *preset.Catalog
}

// NewPackService 组装预设包服务；持久化沿用入站服务的写入路径。
func NewPackService(store repository.Store, catalog *preset.Catalog, opts InboundServiceOptions) PackService {
	svc := &packService{catalog: catalog}
	if store != nil {
		svc.core = NewInboundService(store.Inbounds(), opts).(*inboundService)
		svc.memberships = store.Memberships()
	}
	return svc
}

func (s *packService) Packs() []PackSummary {
	if s == nil || s.catalog == nil {
		return []PackSummary{}
	}
	packs := s.catalog.List()
	out := make([]PackSummary, 0, len(packs))
	for _, pack := range packs {
		summary := PackSummary{
			Name:        pack.Name,
			Title:       pack.Title,
			Description: pack.Description,
			Entries:     len(pack.Entries),
		}
		seen := map[inbound.Protocol]bool{}
		for _, entry := range pack.Entries {
			p := inbound.NormalizeProtocol(entry.Fields["protocol"])
			if !seen[p] {
				seen[p] = true
				summary.Protocols = append(summary.Protocols, string(p))
			}
		}
		out = append(out, summary)
	}
	return out
}

// Apply 执行一次预设包调用：校验 -> 规划 -> 预览或提交 -> 分配给用户/分组。
//
// A blank server address is rejected before the collection is even read. Commits are
// not idempotent: each one allocates fresh ports and tags over the current collection.
func (s *packService) Apply(ctx context.Context, name string, req inbound.PackRequest) (*PackResult, error) {
	if s == nil || s.core == nil || s.catalog == nil {
		return nil, fmt.Errorf("pack service not configured / 预设包服务未配置")
	}
	pack, ok := s.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPack, name)
	}
	if strings.TrimSpace(req.ServerAddress) == "" {
		return nil, ErrServerAddressRequired
	}

	planID := uuid.NewString()
	logger := s.core.logger.With("plan_id", planID, "pack", pack.Name, "request_id", chiMiddleware.GetReqID(ctx))

	existing, err := s.core.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := inbound.PlanPack(pack, req, inbound.SeedAllocationContext(existing))
	if err != nil {
		return nil, err
	}
	s.core.metrics.packPlanned(req.DryRun)

	result := &PackResult{
		PlanID:   planID,
		Pack:     pack.Name,
		DryRun:   req.DryRun,
		Warnings: plan.Warnings,
	}
	if req.DryRun {
		result.Planned = make([]inbound.ExportedProfile, 0, len(plan.Planned))
		for _, p := range plan.Planned {
			result.Planned = append(result.Planned, inbound.ToExportProfile(p))
		}
		logger.InfoContext(ctx, "pack dry run", "planned", len(plan.Planned), "warnings", len(plan.Warnings))
		return result, nil
	}

	createdIDs := make([]int64, 0, len(plan.Planned))
	result.Created = make([]InboundView, 0, len(plan.Planned))
	for _, p := range plan.Planned {
		if err := validateProfile(p); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("entry %s was not created: %v", p.Tag, err))
			continue
		}
		created, err := s.core.persist(ctx, p, SourcePack)
		if err != nil {
			logger.WarnContext(ctx, "pack entry not created", "tag", p.Tag, "port", p.Port, "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("entry %s was not created: %v", p.Tag, err))
			continue
		}
		createdIDs = append(createdIDs, created.ID)
		result.Created = append(result.Created, newInboundView(created))
	}

	assignment, err := s.assign(ctx, createdIDs, req)
	if err != nil {
		logger.WarnContext(ctx, "pack assignment failed", "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("assignment failed: %v", err))
	}
	result.Assignment = assignment

	logger.InfoContext(ctx, "pack committed",
		"created", len(createdIDs),
		"assigned_users", assignment.AssignedUsers,
		"assigned_groups", assignment.AssignedGroups,
		"warnings", len(result.Warnings),
	)
	s.core.record(ctx, security.EventPackCommit, map[string]any{
		"plan_id":         planID,
		"pack":            pack.Name,
		"created_ids":     createdIDs,
		"assigned_users":  assignment.AssignedUsers,
		"assigned_groups": assignment.AssignedGroups,
	})
	return result, nil
}

// assign fans created inbounds out to the requested users and groups. Ids that do not
// exist are left out of the counts. The returned assignment is never nil.
func (s *packService) assign(ctx context.Context, inboundIDs []int64, req inbound.PackRequest) (*PackAssignment, error) {
	assignment := &PackAssignment{
		RequestedUserIDs:  nonNilIDs(req.UserIDs),
		RequestedGroupIDs: nonNilIDs(req.GroupIDs),
	}
	if len(inboundIDs) == 0 || s.memberships == nil {
		return assignment, nil
	}
	if len(req.UserIDs) > 0 {
		users, err := s.memberships.AssignToUsers(ctx, inboundIDs, req.UserIDs)
		if err != nil {
			return assignment, fmt.Errorf("assign users: %w", err)
		}
		assignment.AssignedUsers = len(users)
	}
	if len(req.GroupIDs) > 0 {
		groups, err := s.memberships.AssignToGroups(ctx, inboundIDs, req.GroupIDs)
		if err != nil {
			return assignment, fmt.Errorf("assign groups: %w", err)
		}
		assignment.AssignedGroups = len(groups)
	}
	return assignment, nil
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
