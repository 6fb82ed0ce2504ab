package dto

import "domain-copilot-api/internal/domain/entity"

// ChatRequest /chat 请求
type ChatRequest struct {
	Message     string `json:"message"`
	ProjectName string `json:"project_name"`
}

// ModelTurnResponse 建模类分支的响应
type ModelTurnResponse struct {
	DomainModelDescription string `json:"domain_model_description"`
	PlantUML               string `json:"plant_uml"`
	Suggestion             string `json:"suggestion"`
}

// ConversationTurnResponse 闲聊、提问与离题分支的响应
type ConversationTurnResponse struct {
	Response               string        `json:"response"`
	History                []ChatMessage `json:"history"`
	DomainModelDescription string        `json:"domain_model_description"`
	PlantUML               string        `json:"plant_uml"`
}

// ChatMessage 对话中的一条消息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateUMLRequest /generate_uml 请求
type GenerateUMLRequest struct {
	DomainModelDescriptionText string `json:"domainModelDescriptionText"`
}

// GenerateUMLResponse /generate_uml 响应
type GenerateUMLResponse struct {
	PlantUML string `json:"plantuml"`
}

// DomainModelDescriptionResponse /get_domain_model_descriptions 响应
type DomainModelDescriptionResponse struct {
	DomainModelDescription string `json:"domain_model_description"`
}

// ToChatHistory 对话记录转为响应中的消息列表
func ToChatHistory(t *entity.Transcript) []ChatMessage {
	turns := t.Turns()
	out := make([]ChatMessage, 0, len(turns))
	for _, turn := range turns {
		out = append(out, ChatMessage{Role: string(turn.Role), Content: turn.Content})
	}
	return out
}
