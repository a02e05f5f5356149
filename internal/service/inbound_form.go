// 文件路径: internal/service/inbound_form.go
// 模块说明: 这是 internal 模块里的 inbound_form 逻辑，下面的注释会用非常通俗的中文帮你理解每一步。
package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/creamcroissant/inboundpanel/internal/inbound"
)

const (
	minWireGuardMTU = 576
	maxWireGuardMTU = 65535
)

// serverManagedKeys 是表单里不允许客户端覆盖的字段。
var serverManagedKeys = []string{"id", "createdAt", "updatedAt"}

// ParseDraftForm turns a submitted draft form into a candidate. The form is an
// EditableDraft: domains may be comma-separated text and fallbacks may be JSON text.
func ParseDraftForm(body []byte) (inbound.Candidate, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: form must be a JSON object / 表单必须是 JSON 对象", ErrInvalidInput)
	}
	var item inbound.Candidate
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	for _, key := range serverManagedKeys {
		delete(item, key)
	}

	if raw, ok := item["fallbacks"]; ok {
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			text = strings.TrimSpace(text)
			if text == "" {
				delete(item, "fallbacks")
			} else {
				var buf bytes.Buffer
				if err := json.Compact(&buf, []byte(text)); err != nil {
					return nil, fmt.Errorf("%w: fallbacks is not valid JSON / fallbacks 不是合法 JSON", ErrInvalidInput)
				}
				item["fallbacks"] = buf.Bytes()
			}
		}
	}
	return item, nil
}

// strictCheck 在严格模式下拒绝会被静默替换为默认值的枚举，以及带 HTML 标记的备注和服务器地址。
func strictCheck(item inbound.Candidate) error {
	if _, _, _, err := inbound.StrictNormalize(item["protocol"], item["network"], item["security"]); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	for _, key := range []string{"remark", "serverAddress"} {
		var text string
		if raw, ok := item[key]; ok && json.Unmarshal(raw, &text) == nil && inbound.ContainsMarkup(text) {
			return fmt.Errorf("%w: %s contains HTML markup / %s 含有 HTML 标记", ErrInvalidInput, key, key)
		}
	}
	return nil
}

// validateProfile checks the opaque sub-fields Compose passes through untouched.
func validateProfile(p inbound.Profile) error {
	switch v := p.Variant.(type) {
	case inbound.VLESSFields:
		return validateFallbacks(v.Fallbacks)
	case inbound.TrojanFields:
		return validateFallbacks(v.Fallbacks)
	case inbound.WireGuardFields:
		if v.MTU != 0 && (v.MTU < minWireGuardMTU || v.MTU > maxWireGuardMTU) {
			return fmt.Errorf("%w: wgMtu %d out of range [%d, %d] / MTU 超出范围", ErrInvalidInput, v.MTU, minWireGuardMTU, maxWireGuardMTU)
		}
	}
	return nil
}

func validateFallbacks(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("%w: fallbacks must be a JSON array / fallbacks 必须是 JSON 数组", ErrInvalidInput)
	}
	for i, entry := range entries {
		entry = bytes.TrimSpace(entry)
		if len(entry) == 0 || entry[0] != '{' {
			return fmt.Errorf("%w: fallbacks[%d] must be an object / fallbacks[%d] 必须是对象", ErrInvalidInput, i, i)
		}
	}
	return nil
}
