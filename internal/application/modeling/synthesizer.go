package modeling

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"domain-copilot-api/internal/workflow/chain"
	wfmodel "domain-copilot-api/internal/workflow/model"
	wfnode "domain-copilot-api/internal/workflow/node"
	workflowport "domain-copilot-api/internal/workflow/port"
	workflowprompt "domain-copilot-api/internal/workflow/prompt"
	"domain-copilot-api/pkg/logger"
)

// ErrSynthesisFailed 无法生成 PlantUML
var ErrSynthesisFailed = errors.New("plantuml synthesis failed")

// Synthesizer 领域模型描述到 PlantUML 类图的转换
type Synthesizer interface {
	Synthesize(ctx context.Context, description string) (string, error)
	// Adjust 按用户要求调整现有图，图为空时退化为 Synthesize
	Adjust(ctx context.Context, description, diagram, request string) (string, error)
}

// EinoSynthesizer 基于 Eino chain 的 Synthesizer
type EinoSynthesizer struct {
	cfg     GenerationConfig
	diagram generator
	adjust  generator
}

var _ Synthesizer = (*EinoSynthesizer)(nil)

// NewEinoSynthesizer 创建合成器
func NewEinoSynthesizer(factory workflowport.ChatModelFactory, cfg GenerationConfig) *EinoSynthesizer {
	return &EinoSynthesizer{
		cfg:     cfg.withDefaults(),
		diagram: chain.NewGenerationChain(factory, chain.StepConfig{Step: StepDiagram, PromptID: workflowprompt.PromptDiagramV1}),
		adjust:  chain.NewGenerationChain(factory, chain.StepConfig{Step: StepDiagramAdjust, PromptID: workflowprompt.PromptDiagramAdjustV1}),
	}
}

func (s *EinoSynthesizer) Synthesize(ctx context.Context, description string) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", fmt.Errorf("%w: empty description", ErrSynthesisFailed)
	}
	return s.generate(ctx, s.diagram, map[string]any{
		"description": wfnode.TailByRunes(description, s.cfg.MaxInputRunes),
	})
}

func (s *EinoSynthesizer) Adjust(ctx context.Context, description, diagram, request string) (string, error) {
	if strings.TrimSpace(diagram) == "" {
		return s.Synthesize(ctx, description)
	}
	if patched, ok := PatchDirection(diagram, request); ok {
		logger.Debug(ctx, "diagram direction patched locally")
		return patched, nil
	}
	return s.generate(ctx, s.adjust, map[string]any{
		"diagram": diagram,
		"request": wfnode.TruncateByRunes(request, s.cfg.MaxInputRunes),
	})
}

func (s *EinoSynthesizer) generate(ctx context.Context, gen generator, vars map[string]any) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	temperature := float32(0)
	msg, err := gen.Invoke(ctx, &wfmodel.GenerationInput{
		Provider:    s.cfg.Provider,
		Temperature: &temperature,
		Vars:        vars,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSynthesisFailed, gen.Step(), err)
	}
	if msg == nil {
		return "", fmt.Errorf("%w: %s: empty response", ErrSynthesisFailed, gen.Step())
	}

	out := wfnode.NormalizePlantUML(msg.Content)
	if out == "" {
		return "", fmt.Errorf("%w: %s: empty diagram", ErrSynthesisFailed, gen.Step())
	}
	return out, nil
}

// QualityReport 图质量评估结果
type QualityReport struct {
	RelationshipCount int
	NeedsRefinement   bool
	Feedback          []string
}

const (
	feedbackFewRelationships = "The UML diagram has very few relationships. Consider enriching the domain model with more connections between entities."
	feedbackMissingAttrs     = "Domain model mentions classes with attributes but none appear in the UML diagram."
)

var relationshipMarkers = []string{" -- ", "<|--", "o--", "*--"}

// AnalyzeQuality 粗略评估 PlantUML 图：关系太少或描述里的属性没有进入图时需要细化
func AnalyzeQuality(diagram, description string) QualityReport {
	var report QualityReport
	for _, line := range strings.Split(diagram, "\n") {
		for _, marker := range relationshipMarkers {
			if strings.Contains(line, marker) {
				report.RelationshipCount++
			}
		}
	}

	if report.RelationshipCount < 2 {
		report.NeedsRefinement = true
		report.Feedback = append(report.Feedback, feedbackFewRelationships)
	}
	if strings.Contains(strings.ToLower(description), "class") && !strings.Contains(diagram, ": ") {
		report.NeedsRefinement = true
		report.Feedback = append(report.Feedback, feedbackMissingAttrs)
	}
	return report
}

