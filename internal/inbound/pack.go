// 文件路径: internal/inbound/pack.go
// 模块说明: 这是 internal 模块里的 pack 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package inbound

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrServerAddressRequired 表示预设包请求缺少服务器地址。
var ErrServerAddressRequired = errors.New("inbound: server address is required / 服务器地址不能为空")

// Pack 是一组共享服务器身份、一起创建的入站预设。
type Pack struct {
	Name        string      `yaml:"name" json:"name"`
	Title       string      `yaml:"title" json:"title"`
	Description string      `yaml:"description" json:"description,omitempty"`
	Entries     []PackEntry `yaml:"entries" json:"entries"`
}

// PackEntry is one profile template of a pack. Fields holds candidate keys as they would
// appear in an import document; CDN marks entries that are fronted by the CDN host.
type PackEntry struct {
	CDN    bool           `yaml:"cdn" json:"cdn,omitempty"`
	Fields map[string]any `yaml:",inline" json:"fields"`
}

// Label returns a short name for warnings.
func (e PackEntry) Label(index int) string {
	if tag, ok := e.Fields["tag"].(string); ok && strings.TrimSpace(tag) != "" {
		return strings.TrimSpace(tag)
	}
	return "#" + strconv.Itoa(index+1)
}

// PackRequest 是一次预设包调用的输入。
type PackRequest struct {
	ServerAddress string  `json:"serverAddress"`
	ServerName    string  `json:"serverName,omitempty"`
	CDNHost       string  `json:"cdnHost,omitempty"`
	FallbackPorts string  `json:"fallbackPorts,omitempty"`
	UserIDs       []int64 `json:"userIds,omitempty"`
	GroupIDs      []int64 `json:"groupIds,omitempty"`
	DryRun        bool    `json:"dryRun"`
}

// PackPlan is the computed, not yet persisted, outcome of a pack request.
type PackPlan struct {
	Planned  []Profile
	Warnings []string
}

// PlanPack 校验请求并为包内每个条目分配端口和标签。
//
// A blank server address fails with ErrServerAddressRequired before ctx is touched.
// Otherwise every entry is composed in order against ctx, so entries never collide with
// each other or with whatever ctx was seeded with.
func PlanPack(pack Pack, req PackRequest, ctx *AllocationContext) (PackPlan, error) {
	server := strings.TrimSpace(req.ServerAddress)
	if server == "" {
		return PackPlan{}, ErrServerAddressRequired
	}
	serverName := strings.TrimSpace(req.ServerName)
	cdnHost := strings.TrimSpace(req.CDNHost)

	plan := PackPlan{}
	warn := func(format string, args ...any) {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf(format, args...))
	}

	if cdnHost != "" && strings.EqualFold(cdnHost, server) {
		warn("CDN host %s is the same as the server address; traffic will not go through the CDN", cdnHost)
	}

	fallbacks, invalid := parseFallbackPorts(req.FallbackPorts)
	for _, token := range invalid {
		warn("fallback port %q is not a valid port and was ignored", token)
	}

	for i, entry := range pack.Entries {
		label := entry.Label(i)
		item := entry.candidate()

		protocol := NormalizeProtocol(item["protocol"])
		network := NormalizeNetwork(item["network"], protocol)
		security := NormalizeSecurity(item["security"], protocol)

		address := server
		if entry.CDN {
			if cdnHost == "" {
				warn("entry %s is a CDN entry but no CDN host was given; using the server address", label)
			} else {
				address = cdnHost
				setHostHeader(item, network, cdnHost)
			}
		}
		item.set("serverAddress", address)

		switch security {
		case SecurityTLS:
			if serverName != "" {
				item.set("sni", serverName)
			} else if _, ok := item.stringValue("sni"); !ok {
				item.set("sni", address)
			}
		case SecurityReality:
			if serverName != "" {
				item.set("sni", serverName)
				item.set("realityServerNames", []string{serverName})
			}
		}

		if len(fallbacks) > 0 && network == NetworkTCP &&
			(protocol == ProtocolVLESS || protocol == ProtocolTrojan) {
			if _, ok := item.present("fallbacks"); !ok {
				item.set("fallbacks", fallbacks)
			}
		}

		p := Compose(item, i, ctx)

		if port, ok := RequestedPort(item); ok && port != p.Port {
			warn("entry %s: port %d is already in use, allocated %d", label, port, p.Port)
		}
		if tag := RequestedTag(item); tag != "" && tag != p.Tag {
			warn("entry %s: tag %s is already in use, allocated %s", label, tag, p.Tag)
		}
		if p.Security == SecurityReality && (p.Stream.Reality == nil || p.Stream.Reality.PrivateKey == "") {
			warn("entry %s: REALITY key material is empty; set realityPrivateKey before use", label)
		}
		plan.Planned = append(plan.Planned, p)
	}
	return plan, nil
}

type fallbackDest struct {
	Dest int `json:"dest"`
}

// parseFallbackPorts splits a comma-separated port list into fallback entries and the
// tokens that were not valid ports.
func parseFallbackPorts(text string) ([]fallbackDest, []string) {
	var (
		out     []fallbackDest
		invalid []string
	)
	for _, token := range strings.Split(text, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		port, ok := ParsePort(token)
		if !ok || !portInRange(port) {
			invalid = append(invalid, token)
			continue
		}
		out = append(out, fallbackDest{Dest: port})
	}
	return out, invalid
}

func setHostHeader(item Candidate, network Network, host string) {
	switch network {
	case NetworkWS:
		item.set("wsHost", host)
	case NetworkHTTP, NetworkHTTPUpgrade:
		item.set("httpHost", host)
	case NetworkXHTTP:
		item.set("xhttpHost", host)
	}
}

func (e PackEntry) candidate() Candidate {
	c := make(Candidate, len(e.Fields))
	for key, value := range e.Fields {
		c.set(key, value)
	}
	return c
}

func (c Candidate) set(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c[key] = data
}
