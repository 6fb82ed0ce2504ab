// Package entity 定义领域实体
package entity

import "strings"

// Turn 对话中的一轮发言，追加后不可修改
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript 项目范围内按顺序排列的对话记录
type Transcript struct {
	turns []Turn
}

// NewTranscript 创建对话记录
func NewTranscript(turns ...Turn) *Transcript {
	t := &Transcript{turns: make([]Turn, 0, len(turns))}
	t.turns = append(t.turns, turns...)
	return t
}

// Append 追加一轮发言
func (t *Transcript) Append(role Role, content string) {
	t.turns = append(t.turns, Turn{Role: role, Content: content})
}

// Turns 返回发言副本
func (t *Transcript) Turns() []Turn {
	if t == nil {
		return nil
	}
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len 发言数量
func (t *Transcript) Len() int {
	if t == nil {
		return 0
	}
	return len(t.turns)
}

// Last 最后一轮发言
func (t *Transcript) Last() (Turn, bool) {
	if t == nil || len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// Clone 深拷贝
func (t *Transcript) Clone() *Transcript {
	return NewTranscript(t.Turns()...)
}

// Split 按位置拆分为较早部分与最近部分（最近部分保留 keep 轮）
func (t *Transcript) Split(keep int) (older, recent *Transcript) {
	turns := t.Turns()
	if keep < 0 {
		keep = 0
	}
	if keep >= len(turns) {
		return NewTranscript(), NewTranscript(turns...)
	}
	cut := len(turns) - keep
	return NewTranscript(turns[:cut]...), NewTranscript(turns[cut:]...)
}

// Flatten 渲染为带角色前缀的多行文本，保持顺序
func (t *Transcript) Flatten() string {
	if t == nil || len(t.turns) == 0 {
		return ""
	}
	var b strings.Builder
	for i, turn := range t.turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(turn.Role.Label())
		b.WriteString(": ")
		b.WriteString(turn.Content)
	}
	return b.String()
}

// TranscriptFromVersions 按版本顺序从 user_input / assistant 重建对话记录
func TranscriptFromVersions(versions []*ProjectVersion) *Transcript {
	t := NewTranscript()
	for _, v := range versions {
		if v == nil {
			continue
		}
		if v.UserInput != nil && strings.TrimSpace(*v.UserInput) != "" {
			t.Append(RoleUser, *v.UserInput)
		}
		if v.AssistantReply != nil && strings.TrimSpace(*v.AssistantReply) != "" {
			t.Append(RoleAssistant, *v.AssistantReply)
		}
	}
	return t
}
