// Package entity 定义领域实体
package entity

// Role 对话角色枚举
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Label 返回扁平化文本中的角色前缀
func (r Role) Label() string {
	if r == RoleAssistant {
		return "Assistant"
	}
	return "User"
}
