package node

import "strings"

// responseFormatMarkers 不支持结构化输出的提供商在报错里会带上这些片段
var responseFormatMarkers = [][]string{
	{"response_format"},
	{"response_schema"},
	{"json_schema"},
	{"unknown parameter", "response"},
	{"invalid", "response"},
	{"failed to parse"},
}

// IsResponseFormatUnsupportedError 判断错误是否源于提供商拒绝 response_format，
// 命中时调用方应去掉 schema 约束重试一次。
func IsResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, group := range responseFormatMarkers {
		if containsAll(msg, group) {
			return true
		}
	}
	return false
}

func containsAll(s string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
