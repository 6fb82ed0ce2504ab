package node

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONObject 模型输出里找不到完整的 JSON 对象
var ErrNoJSONObject = errors.New("no json object in model output")

// ExtractJSONObject 截取模型输出中第一个括号配平的 JSON 对象。
// 模型常在对象前后附带解释文字，字符串字面量内的括号不参与配平。
func ExtractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// DecodeJSONObject 去掉代码围栏后截取 JSON 对象并解码到 v
func DecodeJSONObject(s string, v any) error {
	raw, ok := ExtractJSONObject(StripCodeFence(s))
	if !ok {
		return ErrNoJSONObject
	}
	return json.Unmarshal([]byte(raw), v)
}
