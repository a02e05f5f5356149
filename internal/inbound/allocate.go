package inbound

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	// MinPort / MaxPort 为合法端口范围。
	MinPort = 1
	MaxPort = 65535
	// WrapPort is where the linear probe restarts after passing MaxPort, skipping the
	// well-known range.
	WrapPort = 1024
)

// AllocationContext 保存一次调用内已占用的标签和端口。
//
// It is seeded from the existing collection before processing and every allocation
// inserts its result, so item N observes the allocations of items before it. It is not
// safe for concurrent use; one invocation owns one context.
type AllocationContext struct {
	tags  map[string]struct{}
	ports map[int]struct{}
}

// NewAllocationContext returns an empty context.
func NewAllocationContext() *AllocationContext {
	return &AllocationContext{
		tags:  make(map[string]struct{}),
		ports: make(map[int]struct{}),
	}
}

// SeedAllocationContext returns a context that treats every tag and port of existing as used.
func SeedAllocationContext(existing []Profile) *AllocationContext {
	ctx := NewAllocationContext()
	for _, p := range existing {
		ctx.ReserveTag(p.Tag)
		ctx.ReservePort(p.Port)
	}
	return ctx
}

// ReserveTag marks tag as used. Empty tags are ignored.
func (c *AllocationContext) ReserveTag(tag string) {
	if normalized := normalizeTag(tag); normalized != "" {
		c.tags[normalized] = struct{}{}
	}
}

// ReservePort marks port as used. Out-of-range values are ignored.
func (c *AllocationContext) ReservePort(port int) {
	if portInRange(port) {
		c.ports[port] = struct{}{}
	}
}

// TagUsed reports whether tag (after normalization) is already taken.
func (c *AllocationContext) TagUsed(tag string) bool {
	_, ok := c.tags[normalizeTag(tag)]
	return ok
}

// PortUsed reports whether port is already taken.
func (c *AllocationContext) PortUsed(port int) bool {
	_, ok := c.ports[port]
	return ok
}

// Len returns the number of reserved tags and ports.
func (c *AllocationContext) Len() (tags, ports int) {
	return len(c.tags), len(c.ports)
}

// AllocateTag 生成唯一标签：小写、空白折叠为 "-"；冲突时在原始 base 上追加 -1、-2……
// The result is reserved before returning.
func (c *AllocationContext) AllocateTag(raw, fallbackBase string) string {
	base := normalizeTag(raw)
	if base == "" {
		base = normalizeTag(fallbackBase)
	}
	if base == "" {
		base = "inbound"
	}
	candidate := base
	for i := 1; c.TagUsed(candidate); i++ {
		candidate = base + "-" + strconv.Itoa(i)
	}
	c.tags[candidate] = struct{}{}
	return candidate
}

// AllocatePort 解析 raw 为端口；非法时使用 fallback，然后向上线性探测空闲端口，
// 超过 65535 时回绕到 1024。The result is reserved before returning.
//
// When every port the probe can reach is taken the probe stops after one full cycle
// and returns its last candidate.
func (c *AllocationContext) AllocatePort(raw any, fallback int) int {
	port, ok := ParsePort(raw)
	if !ok || !portInRange(port) {
		port = fallback
	}
	for step := 0; step <= MaxPort; step++ {
		if portInRange(port) && !c.PortUsed(port) {
			break
		}
		port++
		if port > MaxPort {
			port = WrapPort
		}
	}
	c.ports[port] = struct{}{}
	return port
}

// ParsePort accepts ints, integral floats, numeric strings and their JSON encodings.
// It does not check the range.
func ParsePort(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return 0, false
		}
		return ParsePort(decoded)
	default:
		return 0, false
	}
}

func portInRange(port int) bool {
	return port >= MinPort && port <= MaxPort
}

// normalizeTag lower-cases s and collapses every whitespace run to a single hyphen.
func normalizeTag(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}
