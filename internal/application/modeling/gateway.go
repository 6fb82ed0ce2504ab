// Package modeling 编排领域建模对话：意图分类、描述生成、PlantUML 合成与版本持久化
package modeling

import (
	"context"
	"strings"

	"domain-copilot-api/internal/domain/entity"
	wfmodel "domain-copilot-api/internal/workflow/model"
)

// 生成失败时返回的固定文本，调用方据此判断失败而不是依赖 error
const (
	DescriptionFailedSentinel = "An error occurred while generating the domain model description."
	SummaryFailedSentinel     = "An error occurred while generating the summary."
	ReplyFailedSentinel       = "An error occurred while processing your request."
)

// ClassificationFallbackSuggestion 分类失败时给用户的提示
const ClassificationFallbackSuggestion = "I encountered an issue while analyzing your input. Could you try describing your domain again with key entities and relationships?"

const maxSuggestions = 3

const (
	suggestionStyleChange = "I've reformatted the domain model description as requested."
	suggestionCasual      = "I'm glad you like it! Let me know if you want to make any changes to the domain model."
	suggestionUpdate      = "I've updated the domain model with your changes."
	suggestionDecision    = "I've created a domain model based on your description."
	suggestionMoreDetails = "Please provide more details about the entities and relationships in your domain."
)

// Gateway 文本生成能力。所有方法都不返回 error：失败时返回哨兵文本或兜底分类。
type Gateway interface {
	Classify(ctx context.Context, transcript string) entity.ClassificationResult
	// GenerateModelDescription style 非空时按该风格改写描述
	GenerateModelDescription(ctx context.Context, transcript, style string) string
	GenerateSummary(ctx context.Context, text string) string
	GenerateGeneralReply(ctx context.Context, contextText string) string
}

// IsSentinel 判断文本是否为生成失败的哨兵
func IsSentinel(s string) bool {
	switch strings.TrimSpace(s) {
	case DescriptionFailedSentinel, SummaryFailedSentinel, ReplyFailedSentinel:
		return true
	default:
		return false
	}
}

// FallbackClassification 分类失败时的结果
func FallbackClassification() entity.ClassificationResult {
	return entity.ClassificationResult{
		RequestType: entity.RequestOffTopic,
		Suggestions: []string{ClassificationFallbackSuggestion},
	}
}

// normalizeClassification 把模型输出整理成 ClassificationResult。
//
// request_type 缺失时才由布尔标志推导；显式给出的 MODEL_QUESTION 等类型
// 不会因为 decision=true 被改判为建模请求。
func normalizeClassification(out *wfmodel.ClassificationOutput) entity.ClassificationResult {
	if out == nil {
		return FallbackClassification()
	}

	explicit := strings.TrimSpace(out.RequestType) != ""
	var rt entity.RequestType
	if explicit {
		rt = entity.ParseRequestType(strings.ToUpper(strings.TrimSpace(out.RequestType)))
	} else {
		rt = deriveRequestType(out)
	}

	res := entity.ClassificationResult{
		RequestType:     rt,
		IsCasual:        out.IsCasualComment || rt == entity.RequestCasual,
		DescriptionOnly: out.IsStyleChange || rt == entity.RequestUpdateDescriptionOnly,
	}
	res.RequiresModelUpdate = rt == entity.RequestInitialModel || rt == entity.RequestUpdateModel ||
		(!explicit && (out.Decision || out.IsUpdate))
	res.RequiresDiagramUpdate = res.RequiresModelUpdate || rt == entity.RequestDiagramAdjustment

	if res.DescriptionOnly {
		res.StyleType = strings.TrimSpace(out.StyleType)
		if res.StyleType == "" {
			res.StyleType = "general"
		}
	}

	for _, s := range out.Suggestions {
		if s = strings.TrimSpace(s); s != "" {
			res.Suggestions = append(res.Suggestions, s)
		}
		if len(res.Suggestions) == maxSuggestions {
			break
		}
	}
	if len(res.Suggestions) == 0 {
		res.Suggestions = []string{defaultSuggestion(res, out)}
	}
	return res
}

func deriveRequestType(out *wfmodel.ClassificationOutput) entity.RequestType {
	switch {
	case out.IsCasualComment:
		return entity.RequestCasual
	case out.IsStyleChange:
		return entity.RequestUpdateDescriptionOnly
	case out.IsUpdate:
		return entity.RequestUpdateModel
	case out.Decision:
		return entity.RequestInitialModel
	default:
		return entity.RequestOffTopic
	}
}

func defaultSuggestion(res entity.ClassificationResult, out *wfmodel.ClassificationOutput) string {
	switch {
	case res.DescriptionOnly:
		return suggestionStyleChange
	case res.IsCasual:
		return suggestionCasual
	case out.IsUpdate || res.RequestType == entity.RequestUpdateModel:
		return suggestionUpdate
	case out.Decision || res.RequestType == entity.RequestInitialModel:
		return suggestionDecision
	default:
		return suggestionMoreDetails
	}
}
