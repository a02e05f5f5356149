// 文件路径: internal/inbound/compose.go
// 模块说明: 这是 internal 模块里的 compose 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package inbound

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const (
	// FallbackPortBase is added to the item index to spread default ports across a batch.
	FallbackPortBase = 20000
	// DefaultDokodemoTargetPort is used when a dokodemo-door item names no target port.
	DefaultDokodemoTargetPort = 80
)

// markupPolicy 用来判断备注和服务器地址里有没有 HTML 标记，本身不改写存储的值。
var markupPolicy = bluemonday.StrictPolicy()

// Compose 把一个不可信的候选条目组装成完整的 Profile。
//
// Order: protocol, network, security, port (fallback 20000+index), tag (fallback
// "<protocol>-<port>"), allow-listed optional fields, dokodemo target port default.
// Keys outside the allow-list are dropped. Values that cannot be coerced to the field's
// type are dropped too. Remark and server address are kept verbatim (trimmed); escaping is
// up to whoever renders them. Compose never fails.
func Compose(item Candidate, index int, ctx *AllocationContext) Profile {
	protocol := NormalizeProtocol(item["protocol"])
	network := NormalizeNetwork(item["network"], protocol)
	security := NormalizeSecurity(item["security"], protocol)

	port := ctx.AllocatePort(item["port"], FallbackPortBase+index)
	tagRaw, _ := item.stringValue("tag")
	tag := ctx.AllocateTag(tagRaw, fmt.Sprintf("%s-%d", strings.ToLower(string(protocol)), port))

	p := Profile{
		Protocol: protocol,
		Network:  network,
		Security: security,
		Port:     port,
		Tag:      tag,
	}
	if v, ok := item.stringValue("remark"); ok {
		p.Remark = v
	}
	if v, ok := item.stringValue("serverAddress"); ok {
		p.ServerAddress = v
	}
	p.Stream = composeStream(item, security)
	p.Domains = item.listValue("domains")
	p.Variant = composeVariant(item, protocol)
	return p
}

// RequestedPort 返回候选条目里显式给出的合法端口。
func RequestedPort(item Candidate) (int, bool) {
	port, ok := ParsePort(item["port"])
	if !ok || !portInRange(port) {
		return 0, false
	}
	return port, true
}

// RequestedTag returns the normalized tag the item asked for, or "" when none was given.
func RequestedTag(item Candidate) string {
	raw, _ := item.stringValue("tag")
	return normalizeTag(raw)
}

func composeStream(item Candidate, security Security) Stream {
	s := Stream{}
	s.SNI, _ = item.stringValue("sni")
	s.ALPN = item.listValue("alpn")
	s.Fingerprint, _ = item.stringValue("fingerprint")
	s.WSPath, _ = item.stringValue("wsPath")
	s.WSHost, _ = item.stringValue("wsHost")
	s.GRPCServiceName, _ = item.stringValue("grpcServiceName")
	s.HTTPPath, _ = item.stringValue("httpPath")
	s.HTTPHost, _ = item.stringValue("httpHost")
	s.XHTTPPath, _ = item.stringValue("xhttpPath")
	s.XHTTPHost, _ = item.stringValue("xhttpHost")
	s.XHTTPMode, _ = item.stringValue("xhttpMode")

	if security == SecurityReality {
		r := &RealityFields{}
		r.PrivateKey, _ = item.stringValue("realityPrivateKey")
		r.PublicKey, _ = item.stringValue("realityPublicKey")
		r.ShortIDs = item.listValue("realityShortIds")
		r.ServerNames = item.listValue("realityServerNames")
		r.Dest, _ = item.stringValue("realityDest")
		s.Reality = r
	}
	return s
}

func composeVariant(item Candidate, protocol Protocol) Variant {
	switch protocol {
	case ProtocolVLESS:
		v := VLESSFields{Fallbacks: item.rawValue("fallbacks")}
		v.Flow, _ = item.stringValue("flow")
		return v
	case ProtocolTrojan:
		return TrojanFields{Fallbacks: item.rawValue("fallbacks")}
	case ProtocolShadowsocks:
		v := ShadowsocksFields{}
		v.Method, _ = item.stringValue("ssMethod")
		return v
	case ProtocolWireGuard:
		v := WireGuardFields{
			Address:    item.listValue("wgAddress"),
			AllowedIPs: item.listValue("wgAllowedIps"),
		}
		v.PrivateKey, _ = item.stringValue("wgPrivateKey")
		v.PublicKey, _ = item.stringValue("wgPublicKey")
		v.PeerPublicKey, _ = item.stringValue("wgPeerPublicKey")
		v.PresharedKey, _ = item.stringValue("wgPresharedKey")
		v.MTU, _ = item.intValue("wgMtu")
		return v
	case ProtocolDokodemoDoor:
		v := DokodemoFields{}
		v.TargetAddress, _ = item.stringValue("targetAddress")
		if port, ok := item.intValue("targetPort"); ok && port > 0 {
			v.TargetPort = port
		} else {
			v.TargetPort = DefaultDokodemoTargetPort
		}
		return v
	case ProtocolMTProto:
		v := MTProtoFields{}
		v.Secret, _ = item.stringValue("mtprotoSecret")
		return v
	default:
		return nil
	}
}

// ContainsMarkup reports whether s carries HTML elements that a strict sanitizer would
// remove. Entities and bare angle brackets ("1<2>3", "&lt;b&gt;") are plain text.
func ContainsMarkup(s string) bool {
	plain := html.UnescapeString(s)
	return html.UnescapeString(markupPolicy.Sanitize(s)) != plain
}

// present 返回非 null 的原始值。
func (c Candidate) present(key string) (json.RawMessage, bool) {
	raw, ok := c[key]
	if !ok {
		return nil, false
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false
	}
	return trimmed, true
}

// stringValue reads a string; numbers and booleans are rendered as text.
func (c Candidate) stringValue(key string) (string, bool) {
	raw, ok := c.present(key)
	if !ok {
		return "", false
	}
	s, ok := scalarText(raw)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// intValue reads an integer; numeric strings are accepted.
func (c Candidate) intValue(key string) (int, bool) {
	raw, ok := c.present(key)
	if !ok {
		return 0, false
	}
	return ParsePort(raw)
}

// listValue reads a string list from a JSON array or a comma-separated string.
// Elements that are not scalars are skipped; an empty result is nil.
func (c Candidate) listValue(key string) []string {
	raw, ok := c.present(key)
	if !ok {
		return nil
	}
	if raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := scalarText(item); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	text, ok := scalarText(raw)
	if !ok {
		return nil
	}
	return SplitList(text)
}

// rawValue returns the compacted JSON for key so equivalent documents compare equal.
func (c Candidate) rawValue(key string) json.RawMessage {
	raw, ok := c.present(key)
	if !ok {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil
	}
	return json.RawMessage(buf.Bytes())
}

// SplitList 按逗号切分并去掉空项。
func SplitList(text string) []string {
	parts := strings.Split(text, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func scalarText(raw json.RawMessage) (string, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}
