// Package model 定义工作流层的输入输出结构
package model

// GenerationInput 单次生成调用的输入
type GenerationInput struct {
	// Provider 为空时使用默认提供商
	Provider string
	// Model 覆盖提供商配置里的模型名
	Model       string
	Temperature *float32
	MaxTokens   *int
	// Vars 提示词模板变量
	Vars map[string]any
}

// ClassificationOutput 分类步骤要求模型返回的 JSON 结构
type ClassificationOutput struct {
	Decision        bool     `json:"decision"`
	IsUpdate        bool     `json:"is_update"`
	IsCasualComment bool     `json:"is_casual_comment"`
	IsStyleChange   bool     `json:"is_style_change"`
	StyleType       string   `json:"style_type"`
	RequestType     string   `json:"request_type"`
	Suggestions     []string `json:"suggestions"`
}

// ClassificationJSONSchema 分类步骤的 response_format schema
func ClassificationJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"decision", "is_update", "is_casual_comment", "is_style_change", "request_type", "suggestions"},
		"properties": map[string]any{
			"decision":          map[string]any{"type": "boolean"},
			"is_update":         map[string]any{"type": "boolean"},
			"is_casual_comment": map[string]any{"type": "boolean"},
			"is_style_change":   map[string]any{"type": "boolean"},
			"style_type":        map[string]any{"type": "string"},
			"request_type": map[string]any{
				"type": "string",
				"enum": []any{
					"INITIAL_MODEL", "UPDATE_MODEL", "UPDATE_DESCRIPTION_ONLY",
					"MODEL_QUESTION", "DIAGRAM_ADJUSTMENT", "CASUAL", "OFF_TOPIC",
				},
			},
			"suggestions": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"maxItems": 3,
			},
		},
	}
}
