package risk

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"solfolio/internal/domain"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const heuristicNarrator = "heuristic"

// Narrator turns an assessment into a short human-readable summary.
type Narrator interface {
	Name() string
	Narrate(ctx context.Context, a domain.RiskAssessment) (string, error)
}

// Heuristic describes the assessment from its factors without any I/O.
type Heuristic struct{}

func (Heuristic) Name() string { return heuristicNarrator }

func (Heuristic) Narrate(_ context.Context, a domain.RiskAssessment) (string, error) {
	return Describe(a), nil
}

// Describe names the level and the two riskiest available factors.
func Describe(a domain.RiskAssessment) string {
	name := a.Symbol
	if name == "" {
		name = a.TokenMint
	}
	if a.Level == domain.RiskUnknown {
		return fmt.Sprintf("Not enough data to assess %s.", name)
	}

	available := make([]domain.RiskFactor, 0, len(a.Factors))
	for _, f := range a.Factors {
		if f.Available {
			available = append(available, f)
		}
	}
	sort.SliceStable(available, func(i, j int) bool {
		return available[i].Risk*available[i].Weight > available[j].Risk*available[j].Weight
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s scores %.0f/100 (%s risk).", name, a.Score, a.Level)
	drivers := make([]string, 0, 2)
	for _, f := range available {
		if len(drivers) == 2 || f.Risk < 0.5 {
			break
		}
		drivers = append(drivers, f.Detail)
	}
	if len(drivers) > 0 {
		fmt.Fprintf(&sb, " Main concerns: %s.", strings.Join(drivers, "; "))
	}
	if a.Confidence < 0.5 {
		sb.WriteString(" Low confidence: several data sources were unavailable.")
	}
	return sb.String()
}

type openAIChatClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// OpenAINarrator asks a chat model for a two sentence summary.
type OpenAINarrator struct {
	client openAIChatClient
	model  string
	tracer trace.Tracer
}

// NewOpenAINarrator returns nil when apiKey is empty.
func NewOpenAINarrator(tracer trace.Tracer, apiKey, model string) *OpenAINarrator {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAINarrator{client: &openAIClient{client: client}, model: model, tracer: tracer}
}

func (n *OpenAINarrator) Name() string {
	if n == nil {
		return "llm"
	}
	return "llm:" + n.model
}

func (n *OpenAINarrator) Narrate(ctx context.Context, a domain.RiskAssessment) (string, error) {
	if n == nil || n.client == nil {
		return "", fmt.Errorf("narrator not configured")
	}
	ctx, span := n.tracer.Start(ctx, "risk.narrate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", n.model), attribute.String("mint", a.TokenMint))

	var sb strings.Builder
	fmt.Fprintf(&sb, "token=%s symbol=%s score=%.2f level=%s confidence=%.2f\n", a.TokenMint, a.Symbol, a.Score, a.Level, a.Confidence)
	for _, f := range a.Factors {
		if !f.Available {
			fmt.Fprintf(&sb, "%s: unavailable\n", f.Name)
			continue
		}
		fmt.Fprintf(&sb, "%s: risk=%.2f weight=%.2f %s\n", f.Name, f.Risk, f.Weight, f.Detail)
	}

	systemPrompt := "You summarize Solana token risk assessments. Reply with at most two plain sentences. Do not give financial advice. No markdown."
	completion, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: n.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(sb.String()),
		},
	})
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty narrator completion")
	}
	reply := strings.TrimSpace(completion.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("empty narrator reply")
	}
	return reply, nil
}

// Narrate fills a.Narrative using n, falling back to the heuristic when n is
// nil or fails.
func Narrate(ctx context.Context, n Narrator, a *domain.RiskAssessment, logger *zap.Logger) {
	if n != nil {
		text, err := n.Narrate(ctx, *a)
		if err == nil {
			a.Narrative = text
			a.Narrator = n.Name()
			return
		}
		if logger != nil {
			logger.Warn("risk narrator failed, using heuristic", zap.String("narrator", n.Name()), zap.Error(err))
		}
	}
	a.Narrative = Describe(*a)
	a.Narrator = heuristicNarrator
}

type openAIClient struct {
	client openai.Client
}

func (c *openAIClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
