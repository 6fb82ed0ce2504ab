package modeling

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"domain-copilot-api/internal/domain/entity"
	"domain-copilot-api/pkg/logger"
	"domain-copilot-api/pkg/metrics"
	"domain-copilot-api/pkg/tracer"
)

// NoModelReply 还没有领域模型时对提问的固定回复
const NoModelReply = "There is no domain model to answer questions about yet. Please create a domain model first."

// ProjectStore 编排器依赖的项目存储能力。
// 本轮会基于读到的状态写入新版本，所以读取必须绕过缓存。
type ProjectStore interface {
	FetchCurrent(ctx context.Context, name string) (*entity.ProjectState, error)
	AppendVersion(ctx context.Context, name, userInput, assistantReply, description, diagram string) (*entity.ProjectVersion, error)
}

// TurnResult 一轮对话的处理结果
type TurnResult struct {
	Description string
	Diagram     string
	Reply       string
	Route       entity.Route
	Transcript  *entity.Transcript
	Version     int
}

// Orchestrator 处理一轮用户发言：分类、分支生成、持久化
type Orchestrator struct {
	store     ProjectStore
	gateway   Gateway
	synth     Synthesizer
	compactor *TranscriptCompactor
}

// NewOrchestrator compactor 可为 nil
func NewOrchestrator(store ProjectStore, gateway Gateway, synth Synthesizer, compactor *TranscriptCompactor) *Orchestrator {
	return &Orchestrator{
		store:     store,
		gateway:   gateway,
		synth:     synth,
		compactor: compactor,
	}
}

// HandleTurn 处理一轮发言。生成失败不会报错，而是保留上一版本的描述或图；
// 只有读取/写入存储失败或请求被取消时才返回 error，此时不写入任何版本。
func (o *Orchestrator) HandleTurn(ctx context.Context, projectName, utterance string) (*TurnResult, error) {
	ctx, span := tracer.Start(ctx, "modeling.Orchestrator.HandleTurn")
	defer span.End()
	ctx = logger.WithProject(ctx, projectName)
	start := time.Now()

	state, err := o.store.FetchCurrent(ctx, projectName)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	transcript := state.Transcript.Clone()
	transcript.Append(entity.RoleUser, utterance)

	cls := o.gateway.Classify(ctx, o.compactor.ClassifyInput(ctx, projectName, transcript))
	route := cls.Route()
	span.SetAttributes(
		attribute.String("route", string(route)),
		attribute.String("request_type", string(cls.RequestType)),
	)

	description, diagram, reply := o.dispatch(ctx, route, cls, state, transcript, utterance)
	transcript.Append(entity.RoleAssistant, reply)

	if err := ctx.Err(); err != nil {
		metrics.OrchestratorRouteTotal.WithLabelValues(string(route), "cancelled").Inc()
		logger.Warn(ctx, "chat turn cancelled before persist", "route", string(route))
		return nil, err
	}

	v, err := o.store.AppendVersion(ctx, projectName, utterance, reply, description, diagram)
	if err != nil {
		metrics.OrchestratorRouteTotal.WithLabelValues(string(route), "error").Inc()
		span.RecordError(err)
		return nil, err
	}

	metrics.OrchestratorRouteTotal.WithLabelValues(string(route), "ok").Inc()
	metrics.OrchestratorDuration.WithLabelValues(string(route)).Observe(time.Since(start).Seconds())
	logger.Info(ctx, "chat turn handled",
		"route", string(route),
		"request_type", string(cls.RequestType),
		"version", v.Version,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &TurnResult{
		Description: v.DomainModelDescription,
		Diagram:     v.PlantUML,
		Reply:       reply,
		Route:       route,
		Transcript:  transcript,
		Version:     v.Version,
	}, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, route entity.Route, cls entity.ClassificationResult,
	state *entity.ProjectState, transcript *entity.Transcript, utterance string) (description, diagram, reply string) {
	description, diagram, reply = state.Description, state.Diagram, cls.ReplyText()

	switch route {
	case entity.RouteCasual, entity.RouteOffTopic:
		diagram = o.ensureDiagram(ctx, description, diagram)

	case entity.RouteDescriptionOnly:
		d := o.gateway.GenerateModelDescription(ctx, transcript.Flatten(), cls.StyleType)
		if !IsSentinel(d) {
			description = d
		}

	case entity.RouteDiagramAdjust:
		u, err := o.synth.Adjust(ctx, description, diagram, utterance)
		if err != nil {
			o.diagramFallback(ctx, StepDiagramAdjust, err)
		} else {
			diagram = u
		}

	case entity.RouteModel:
		d := o.gateway.GenerateModelDescription(ctx, transcript.Flatten(), "")
		if IsSentinel(d) {
			break
		}
		description = d
		u, err := o.synth.Synthesize(ctx, description)
		if err != nil {
			o.diagramFallback(ctx, StepDiagram, err)
			break
		}
		diagram = u
		if report := AnalyzeQuality(diagram, description); report.NeedsRefinement {
			logger.Info(ctx, "generated diagram needs refinement",
				"relationships", report.RelationshipCount,
				"feedback", strings.Join(report.Feedback, " "),
			)
		}

	case entity.RouteQuestion:
		reply = o.answer(ctx, cls, description, utterance)
	}
	return description, diagram, reply
}

// ensureDiagram 已有描述但图仍为占位时顺带补一张图，失败则保持原样
func (o *Orchestrator) ensureDiagram(ctx context.Context, description, diagram string) string {
	if entity.IsPlaceholderDescription(description) || !entity.IsPlaceholderDiagram(diagram) {
		return diagram
	}
	u, err := o.synth.Synthesize(ctx, description)
	if err != nil {
		o.diagramFallback(ctx, StepDiagram, err)
		return diagram
	}
	return u
}

func (o *Orchestrator) answer(ctx context.Context, cls entity.ClassificationResult, description, question string) string {
	if entity.IsPlaceholderDescription(description) {
		return NoModelReply
	}
	ans := o.gateway.GenerateGeneralReply(ctx, "Domain model description:\n"+description+"\n\nQuestion: "+question)
	if IsSentinel(ans) {
		return cls.ReplyText()
	}
	return ans
}

func (o *Orchestrator) diagramFallback(ctx context.Context, step string, err error) {
	metrics.GenerationFallbackTotal.WithLabelValues(step).Inc()
	logger.Warn(ctx, "diagram generation failed, keeping previous diagram",
		"step", step,
		"error", err.Error(),
	)
}
