package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/meeraclinic/clinic-ai-platform/internal/observability/metrics"
	"github.com/meeraclinic/clinic-ai-platform/internal/tools"
	"github.com/meeraclinic/clinic-ai-platform/pkg/logging"
)

// DefaultMaxToolIterations bounds the request/tool loop for one turn.
const DefaultMaxToolIterations = 8

// ErrToolIterationsExceeded is returned when the model keeps requesting tools
// past the per-turn cap.
var ErrToolIterationsExceeded = errors.New("conversation: tool iteration limit exceeded")

var resolverTracer = otel.Tracer("clinic.internal.conversation.resolver")

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config wires a Resolver.
type Config struct {
	Client        chatClient
	Redis         *redis.Client
	Dispatcher    *tools.Dispatcher
	Lock          *tools.DoctorLock
	Specialties   []string
	Model         string
	Temperature   float32
	MaxTokens     int
	MaxIterations int
	Now           func() time.Time
	Logger        *logging.Logger
	Metrics       *metrics.ConversationMetrics
}

// TurnResult is one resolved text turn.
type TurnResult struct {
	Content    string
	ResponseID string
}

// Resolver runs the text-mode turn loop: send the transcript plus the tool
// registry, execute every tool call the model emits, feed results back, and
// repeat until the model answers in plain text. Each finished turn mints a
// fresh continuation token under which the full transcript is stored.
type Resolver struct {
	client        chatClient
	dispatcher    *tools.Dispatcher
	history       *historyStore
	lock          *tools.DoctorLock
	specialties   []string
	model         string
	temperature   float32
	maxTokens     int
	maxIterations int
	now           func() time.Time
	logger        *logging.Logger
	metrics       *metrics.ConversationMetrics
}

// NewResolver creates a Resolver.
func NewResolver(cfg Config) *Resolver {
	if cfg.Client == nil {
		panic("conversation: chat client cannot be nil")
	}
	if cfg.Redis == nil {
		panic("conversation: redis client cannot be nil")
	}
	if cfg.Dispatcher == nil {
		panic("conversation: dispatcher cannot be nil")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxToolIterations
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Resolver{
		client:        cfg.Client,
		dispatcher:    cfg.Dispatcher,
		history:       newHistoryStore(cfg.Redis, resolverTracer),
		lock:          cfg.Lock,
		specialties:   cfg.Specialties,
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		maxIterations: cfg.MaxIterations,
		now:           cfg.Now,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
	}
}

// ResolveTurn processes one user message. An empty responseID starts a new
// conversation; otherwise the stored transcript for that token is resumed.
func (r *Resolver) ResolveTurn(ctx context.Context, message, responseID string) (*TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, errors.New("conversation: message required")
	}

	ctx, span := resolverTracer.Start(ctx, "conversation.resolve_turn")
	defer span.End()
	span.SetAttributes(attribute.Bool("clinic.continuation", responseID != ""))

	history, err := r.openTranscript(ctx, responseID)
	if err != nil {
		span.RecordError(err)
		r.metrics.ObserveTurn("load_failure", 0)
		return nil, err
	}
	history = append(history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	var reply string
	iterations := 0
	for {
		if iterations >= r.maxIterations {
			r.logger.Warn("tool loop hit iteration cap", "iterations", iterations)
			r.metrics.ObserveTurn("iteration_cap", iterations)
			return nil, ErrToolIterationsExceeded
		}

		resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       r.model,
			Messages:    history,
			Tools:       tools.Definitions(),
			Temperature: r.temperature,
			MaxTokens:   r.maxTokens,
		})
		if err != nil {
			span.RecordError(err)
			r.metrics.ObserveTurn("model_failure", iterations)
			return nil, fmt.Errorf("conversation: completion request failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			r.metrics.ObserveTurn("model_failure", iterations)
			return nil, errors.New("conversation: completion returned no choices")
		}

		msg := resp.Choices[0].Message
		history = append(history, msg)
		if len(msg.ToolCalls) == 0 {
			reply = strings.TrimSpace(msg.Content)
			break
		}

		iterations++
		for _, call := range msg.ToolCalls {
			result := r.dispatcher.Invoke(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			payload, merr := json.Marshal(result)
			if merr != nil {
				payload = []byte(`{"error":"Result could not be serialized"}`)
			}
			history = append(history, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    string(payload),
			})
		}
	}

	token := fmt.Sprintf("conv_%s", uuid.NewString())
	if err := r.history.Save(ctx, token, history); err != nil {
		span.RecordError(err)
		r.metrics.ObserveTurn("save_failure", iterations)
		return nil, err
	}

	r.metrics.ObserveTurn("ok", iterations)
	r.logger.Info("turn resolved", "iterations", iterations, "response_id", token)
	return &TurnResult{Content: reply, ResponseID: token}, nil
}

// openTranscript loads the stored transcript for a continuation token, or
// seeds a fresh one with the system prompt.
func (r *Resolver) openTranscript(ctx context.Context, responseID string) ([]openai.ChatCompletionMessage, error) {
	if responseID != "" {
		return r.history.Load(ctx, responseID)
	}
	instructions := systemInstructions(r.now().Format("2006-01-02"), r.specialties)
	instructions += r.lock.PromptDirective()
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: instructions},
	}, nil
}
