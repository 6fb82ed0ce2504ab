package entity

import "strings"

// RequestType 用户请求意图
type RequestType string

const (
	RequestInitialModel          RequestType = "INITIAL_MODEL"
	RequestUpdateModel           RequestType = "UPDATE_MODEL"
	RequestUpdateDescriptionOnly RequestType = "UPDATE_DESCRIPTION_ONLY"
	RequestModelQuestion         RequestType = "MODEL_QUESTION"
	RequestDiagramAdjustment     RequestType = "DIAGRAM_ADJUSTMENT"
	RequestCasual                RequestType = "CASUAL"
	RequestOffTopic              RequestType = "OFF_TOPIC"
)

// ParseRequestType 解析意图字符串，兼容历史别名，未知值归为 OFF_TOPIC
func ParseRequestType(s string) RequestType {
	switch RequestType(s) {
	case RequestInitialModel, RequestUpdateModel, RequestUpdateDescriptionOnly,
		RequestModelQuestion, RequestDiagramAdjustment, RequestCasual, RequestOffTopic:
		return RequestType(s)
	}
	switch s {
	case "INITIAL_DOMAIN_MODEL":
		return RequestInitialModel
	case "UPDATE_DOMAIN_MODEL":
		return RequestUpdateModel
	case "DOMAIN_MODEL_QUESTION", "QUESTION":
		return RequestModelQuestion
	case "PLANTUML_ADJUSTMENT":
		return RequestDiagramAdjustment
	case "CASUAL_COMMENT":
		return RequestCasual
	case "STYLE_CHANGE":
		return RequestUpdateDescriptionOnly
	default:
		return RequestOffTopic
	}
}

// ClassificationResult 单次用户发言的意图分类结果，不持久化
type ClassificationResult struct {
	RequestType           RequestType
	RequiresModelUpdate   bool
	RequiresDiagramUpdate bool
	DescriptionOnly       bool
	IsCasual              bool
	// StyleType 描述改写风格（如 shorter、technical），仅在风格改写请求时非空
	StyleType   string
	Suggestions []string
}

// Route 编排器实际执行的分支
type Route string

const (
	RouteCasual          Route = "casual"
	RouteDiagramAdjust   Route = "diagram_adjustment"
	RouteDescriptionOnly Route = "description_only"
	RouteModel           Route = "model"
	RouteQuestion        Route = "question"
	RouteOffTopic        Route = "off_topic"
)

// Route 按优先级解析分支：CASUAL > DIAGRAM_ADJUSTMENT > UPDATE_DESCRIPTION_ONLY > MODEL > QUESTION > OFF_TOPIC
func (c ClassificationResult) Route() Route {
	switch {
	case c.IsCasual || c.RequestType == RequestCasual:
		return RouteCasual
	case c.RequestType == RequestDiagramAdjustment:
		return RouteDiagramAdjust
	case c.DescriptionOnly || c.RequestType == RequestUpdateDescriptionOnly:
		return RouteDescriptionOnly
	case c.RequiresModelUpdate || c.RequestType == RequestInitialModel || c.RequestType == RequestUpdateModel:
		return RouteModel
	case c.RequestType == RequestModelQuestion:
		return RouteQuestion
	default:
		return RouteOffTopic
	}
}

// ReplyText 建议按行拼接为助手回复
func (c ClassificationResult) ReplyText() string {
	return strings.Join(c.Suggestions, "\n")
}

// IsModelRoute 是否为会返回 suggestion 的建模类分支
func (r Route) IsModelRoute() bool {
	switch r {
	case RouteModel, RouteDescriptionOnly, RouteDiagramAdjust:
		return true
	default:
		return false
	}
}
