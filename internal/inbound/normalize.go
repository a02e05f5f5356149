package inbound

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizeProtocol 将任意输入规范为协议枚举，无法识别时回退为 VLESS。
func NormalizeProtocol(raw any) Protocol {
	if p, ok := matchProtocol(raw); ok {
		return p
	}
	return ProtocolVLESS
}

// NormalizeNetwork 规范传输层；无法识别时 DOKODEMO_DOOR/SOCKS/HTTP 回退为 TCP，其余为 WS。
func NormalizeNetwork(raw any, protocol Protocol) Network {
	if n, ok := matchNetwork(raw); ok {
		return n
	}
	return defaultNetwork(protocol)
}

// NormalizeSecurity 规范安全层：TROJAN 强制 TLS，非 VLESS 的 REALITY 降级为 NONE。
func NormalizeSecurity(raw any, protocol Protocol) Security {
	if protocol == ProtocolTrojan {
		return SecurityTLS
	}
	s, ok := matchSecurity(raw)
	if !ok {
		return SecurityNone
	}
	if s == SecurityReality && protocol != ProtocolVLESS {
		return SecurityNone
	}
	return s
}

func defaultNetwork(protocol Protocol) Network {
	switch protocol {
	case ProtocolDokodemoDoor, ProtocolSOCKS, ProtocolHTTP:
		return NetworkTCP
	default:
		return NetworkWS
	}
}

func matchProtocol(raw any) (Protocol, bool) {
	token := strings.ReplaceAll(upperToken(raw), "-", "_")
	for _, p := range Protocols {
		if string(p) == token {
			return p, true
		}
	}
	return "", false
}

func matchNetwork(raw any) (Network, bool) {
	token := strings.NewReplacer("-", "", "_", "").Replace(upperToken(raw))
	for _, n := range Networks {
		if string(n) == token {
			return n, true
		}
	}
	return "", false
}

func matchSecurity(raw any) (Security, bool) {
	token := upperToken(raw)
	for _, s := range Securities {
		if string(s) == token {
			return s, true
		}
	}
	return "", false
}

// upperToken extracts a trimmed upper-case string from raw; non-string input yields "".
func upperToken(raw any) string {
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case Protocol:
		s = string(v)
	case Network:
		s = string(v)
	case Security:
		s = string(v)
	case json.RawMessage:
		if err := json.Unmarshal(v, &s); err != nil {
			return ""
		}
	default:
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

// FieldDefault records one enum value that was replaced by a default during normalization.
type FieldDefault struct {
	Field string `json:"field"`
	Input string `json:"input"`
	Value string `json:"value"`
}

// NormalizeError lists the enum values a strict caller would have had silently defaulted.
type NormalizeError struct {
	Fields []FieldDefault
}

func (e *NormalizeError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %q -> %s", f.Field, f.Input, f.Value))
	}
	return "inbound: values replaced by defaults / 字段已被默认值替换: " + strings.Join(parts, "; ")
}

// StrictNormalize runs the same normalization as the lenient functions but reports every
// supplied value that did not survive as given. Absent values are not reported.
func StrictNormalize(protocol, network, security any) (Protocol, Network, Security, error) {
	p := NormalizeProtocol(protocol)
	n := NormalizeNetwork(network, p)
	s := NormalizeSecurity(security, p)

	var defaults []FieldDefault
	if token := upperToken(protocol); token != "" {
		if _, ok := matchProtocol(protocol); !ok {
			defaults = append(defaults, FieldDefault{Field: "protocol", Input: rawText(protocol), Value: string(p)})
		}
	}
	if token := upperToken(network); token != "" {
		if _, ok := matchNetwork(network); !ok {
			defaults = append(defaults, FieldDefault{Field: "network", Input: rawText(network), Value: string(n)})
		}
	}
	if token := upperToken(security); token != "" {
		if matched, ok := matchSecurity(security); !ok || matched != s {
			defaults = append(defaults, FieldDefault{Field: "security", Input: rawText(security), Value: string(s)})
		}
	}
	if len(defaults) > 0 {
		return p, n, s, &NormalizeError{Fields: defaults}
	}
	return p, n, s, nil
}

func rawText(raw any) string {
	switch v := raw.(type) {
	case json.RawMessage:
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
