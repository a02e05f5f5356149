package inbound

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// ExportDocument 是导出文件的完整结构。
type ExportDocument struct {
	App        string            `json:"app"`
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exportedAt"`
	Inbounds   []ExportedProfile `json:"inbounds"`
}

// ExportFilename stamps an export file with at, replacing ':' and '.' so the name is
// safe on every filesystem.
func ExportFilename(at time.Time) string {
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(at.UTC().Format(time.RFC3339Nano))
	return "inbounds-" + stamp + ".json"
}

// ToExportProfile 把 Profile 投影为可移植的扁平结构，空值在序列化时省略。
func ToExportProfile(p Profile) ExportedProfile {
	e := ExportedProfile{
		Protocol:        p.Protocol,
		Network:         p.Network,
		Security:        p.Security,
		Port:            p.Port,
		Tag:             p.Tag,
		Remark:          p.Remark,
		ServerAddress:   p.ServerAddress,
		SNI:             p.Stream.SNI,
		ALPN:            cloneStrings(p.Stream.ALPN),
		Fingerprint:     p.Stream.Fingerprint,
		WSPath:          p.Stream.WSPath,
		WSHost:          p.Stream.WSHost,
		GRPCServiceName: p.Stream.GRPCServiceName,
		HTTPPath:        p.Stream.HTTPPath,
		HTTPHost:        p.Stream.HTTPHost,
		XHTTPPath:       p.Stream.XHTTPPath,
		XHTTPHost:       p.Stream.XHTTPHost,
		XHTTPMode:       p.Stream.XHTTPMode,
		Domains:         cloneStrings(p.Domains),
	}
	if r := p.Stream.Reality; r != nil {
		e.RealityPrivateKey = r.PrivateKey
		e.RealityPublicKey = r.PublicKey
		e.RealityShortIDs = cloneStrings(r.ShortIDs)
		e.RealityServerNames = cloneStrings(r.ServerNames)
		e.RealityDest = r.Dest
	}
	if p.Variant != nil {
		p.Variant.flatten(&e)
	}
	return e
}

// FromExportProfile rebuilds a Profile from a trusted projection, such as a stored row.
// Port and tag are taken as given; nothing is allocated.
func FromExportProfile(e ExportedProfile) Profile {
	item := e.Candidate()
	protocol := NormalizeProtocol(e.Protocol)
	security := NormalizeSecurity(e.Security, protocol)
	return Profile{
		Protocol:      protocol,
		Network:       NormalizeNetwork(e.Network, protocol),
		Security:      security,
		Port:          e.Port,
		Tag:           e.Tag,
		Remark:        e.Remark,
		ServerAddress: e.ServerAddress,
		Stream:        composeStream(item, security),
		Domains:       cloneStrings(e.Domains),
		Variant:       composeVariant(item, protocol),
	}
}

// Candidate converts the export back into an import candidate.
func (e ExportedProfile) Candidate() Candidate {
	data, err := json.Marshal(e)
	if err != nil {
		return Candidate{}
	}
	var c Candidate
	if err := json.Unmarshal(data, &c); err != nil {
		return Candidate{}
	}
	return c
}

// BuildClonePayload 生成克隆载荷：标签取 "<tag>-copy"，端口从 source.port+1 开始探测，
// 备注追加 " (Clone)"。existing 应包含集合里的全部 Profile（通常也包含 source）。
func BuildClonePayload(source Profile, existing []Profile) ExportedProfile {
	ctx := SeedAllocationContext(existing)
	payload := ToExportProfile(source)
	payload.Tag = ctx.AllocateTag(source.Tag+"-copy", source.Tag)
	payload.Port = ctx.AllocatePort(source.Port+1, source.Port+1)

	label := source.Remark
	if label == "" {
		label = source.Tag
	}
	payload.Remark = label + " (Clone)"
	return payload
}

// ToEditableDraft flattens multi-value fields to text for form editing. The draft is
// not parsed back here; the form submission path owns that.
func ToEditableDraft(p Profile) EditableDraft {
	e := ToExportProfile(p)
	draft := EditableDraft{ExportedProfile: e}
	if len(e.Domains) > 0 {
		draft.Domains = strings.Join(e.Domains, ", ")
	}
	if len(e.Fallbacks) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, e.Fallbacks, "", "  "); err == nil {
			draft.Fallbacks = buf.String()
		} else {
			draft.Fallbacks = string(e.Fallbacks)
		}
	}
	draft.ExportedProfile.Domains = nil
	draft.ExportedProfile.Fallbacks = nil
	return draft
}
