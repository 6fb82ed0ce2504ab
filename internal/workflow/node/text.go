package node

import (
	"strings"
	"unicode/utf8"
)

func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// TailByRunes 保留末尾 maxRunes 个字符（对话越新越重要）
func TailByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	total := utf8.RuneCountInString(s)
	if total <= maxRunes {
		return s
	}
	skip := total - maxRunes
	n := 0
	for i := range s {
		if n == skip {
			return s[i:]
		}
		n++
	}
	return s
}

// StripCodeFence 去掉模型输出外层的 markdown 代码块（```plantuml ... ```）
func StripCodeFence(s string) string {
	raw := strings.TrimSpace(s)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	lines := strings.Split(raw, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// NormalizePlantUML 去掉代码块与首尾噪声，保证 @startuml / @enduml 成对出现
func NormalizePlantUML(s string) string {
	raw := StripCodeFence(s)
	if raw == "" {
		return ""
	}

	if start := strings.Index(raw, "@startuml"); start > 0 {
		raw = raw[start:]
	}
	if end := strings.LastIndex(raw, "@enduml"); end >= 0 {
		raw = raw[:end+len("@enduml")]
	}

	if !strings.HasPrefix(raw, "@startuml") {
		raw = "@startuml\n" + raw
	}
	if !strings.HasSuffix(raw, "@enduml") {
		raw = strings.TrimRight(raw, "\n") + "\n@enduml"
	}
	return raw
}
