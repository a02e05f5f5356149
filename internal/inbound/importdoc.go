package inbound

import (
	"bytes"
	"encoding/json"
)

// ParseImportDocument 解析导入文档：对象数组、{"inbounds": [...]} 或单个对象。
// Anything else yields no candidates; array members that are not objects are skipped.
func ParseImportDocument(data []byte) []Candidate {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '[':
		return candidatesFromArray(trimmed)
	case '{':
		var obj Candidate
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil
		}
		if list, ok := obj["inbounds"]; ok {
			list = bytes.TrimSpace(list)
			if len(list) > 0 && list[0] == '[' {
				return candidatesFromArray(list)
			}
		}
		return []Candidate{obj}
	default:
		return nil
	}
}

func candidatesFromArray(data []byte) []Candidate {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	out := make([]Candidate, 0, len(items))
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			continue
		}
		var c Candidate
		if err := json.Unmarshal(item, &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}
