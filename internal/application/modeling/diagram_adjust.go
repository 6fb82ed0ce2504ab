package modeling

import "strings"

const (
	directionLeftToRight = "left to right direction"
	directionTopToBottom = "top to bottom direction"
)

// PatchDirection 处理不需要模型参与的方向调整请求。
// ok 为 false 表示请求不是方向调整，需要走生成调用。
func PatchDirection(diagram, request string) (string, bool) {
	req := strings.ToLower(request)
	switch {
	case strings.Contains(req, "left to right"):
		if hasDirective(diagram, directionLeftToRight) {
			return diagram, true
		}
		return insertDirective(diagram, directionLeftToRight), true
	case strings.Contains(req, "top to bottom"):
		lines := strings.Split(diagram, "\n")
		kept := lines[:0]
		for _, line := range lines {
			if strings.TrimSpace(line) == directionLeftToRight {
				continue
			}
			kept = append(kept, line)
		}
		out := strings.Join(kept, "\n")
		if hasDirective(out, directionTopToBottom) {
			return out, true
		}
		return insertDirective(out, directionTopToBottom), true
	default:
		return "", false
	}
}

func hasDirective(diagram, directive string) bool {
	for _, line := range strings.Split(diagram, "\n") {
		if strings.TrimSpace(line) == directive {
			return true
		}
	}
	return false
}

// insertDirective 插到 @startuml 行之后，没有 @startuml 时插到最前面
func insertDirective(diagram, directive string) string {
	lines := strings.Split(diagram, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "@startuml") {
			out := make([]string, 0, len(lines)+1)
			out = append(out, lines[:i+1]...)
			out = append(out, directive)
			out = append(out, lines[i+1:]...)
			return strings.Join(out, "\n")
		}
	}
	return directive + "\n" + diagram
}
