// Package orchestrator composes completion requests for summaries and chat
// replies.
//
// DESIGN: The orchestrator is stateless - it never touches the conversation
// window, it only reads the snapshot handed to it. Appending the reply back
// into the window is the controller's job, which keeps both halves
// independently testable. All failures surface as typed GenerationErrors so
// the controller can degrade instead of aborting.
package orchestrator

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"

	"github.com/veilsearch/gateway/internal/aggregator"
	"github.com/veilsearch/gateway/internal/config"
	"github.com/veilsearch/gateway/internal/conversation"
)

// ErrorKind classifies completion service failures.
type ErrorKind string

const (
	// KindServiceUnavailable: the completion service could not be reached
	// or answered with an error.
	KindServiceUnavailable ErrorKind = "service_unavailable"
	// KindTimeout: the completion call exceeded its deadline.
	KindTimeout ErrorKind = "timeout"
	// KindInvalidResponse: the service answered but produced no usable text.
	KindInvalidResponse ErrorKind = "invalid_response"
)

// GenerationError is the typed failure returned by Summarize and ChatReply.
// Never retried automatically: generation is best-effort relative to the
// underlying search function.
type GenerationError struct {
	Kind ErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return "generation " + string(e.Kind) + ": " + e.Err.Error()
	}
	return "generation " + string(e.Kind)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Orchestrator builds prompts and calls the completion service.
type Orchestrator struct {
	client           openai.Client
	model            string
	timeout          time.Duration
	maxSummaryTokens int64
	maxReplyTokens   int64
	maxPromptTokens  int
	summarySources   int
	temperature      float64

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

// New creates an orchestrator from the completion config. BaseURL is
// honored when set, which is also how tests point it at a fake service.
func New(cfg config.CompletionConfig, summarySourceLimit int) *Orchestrator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Orchestrator{
		client:           openai.NewClient(opts...),
		model:            cfg.Model,
		timeout:          cfg.Timeout.Std(),
		maxSummaryTokens: int64(cfg.MaxSummaryTokens),
		maxReplyTokens:   int64(cfg.MaxReplyTokens),
		maxPromptTokens:  cfg.MaxPromptTokens,
		summarySources:   summarySourceLimit,
		temperature:      cfg.Temperature,
	}
}

// Summarize produces a summary of the result set. An empty set
// short-circuits to the canned no-results summary with zero upstream calls.
func (o *Orchestrator) Summarize(ctx context.Context, results []aggregator.ResultItem) (string, error) {
	if len(results) == 0 {
		return NoResultsSummary, nil
	}

	prompt := o.buildSummaryPrompt(results, o.summarySources)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	}
	return o.complete(ctx, messages, o.maxSummaryTokens)
}

// ChatReply produces the assistant reply for the given window snapshot,
// optionally grounded in fresh aggregator context. The caller appends the
// returned text to the window; the orchestrator does not.
func (o *Orchestrator) ChatReply(ctx context.Context, window []conversation.Message, freshContext []aggregator.ResultItem) (string, error) {
	system := chatSystemPrompt
	if digest := buildContextDigest(freshContext); digest != "" {
		system = system + "\n\n" + o.truncateToBudget(digest)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(window)+1)
	messages = append(messages, openai.SystemMessage(system))
	for _, m := range window {
		switch m.Role {
		case conversation.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	return o.complete(ctx, messages, o.maxReplyTokens)
}

func (o *Orchestrator) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, maxTokens int64) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   openai.Int(maxTokens),
		Temperature: openai.Float(o.temperature),
	})
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", &GenerationError{Kind: KindInvalidResponse, Err: errors.New("no choices in completion response")}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", &GenerationError{Kind: KindInvalidResponse, Err: errors.New("empty completion text")}
	}

	log.Debug().
		Dur("latency", time.Since(start)).
		Int("messages", len(messages)).
		Msg("completion finished")
	return text, nil
}

func classify(err error) *GenerationError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &GenerationError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &GenerationError{Kind: KindTimeout, Err: err}
	}
	return &GenerationError{Kind: KindServiceUnavailable, Err: err}
}

// countTokens measures text with the model's tokenizer, falling back to a
// chars/4 estimate when the encoding is unavailable (offline start).
func (o *Orchestrator) countTokens(text string) int {
	o.encOnce.Do(func() {
		enc, err := tiktoken.EncodingForModel(o.model)
		if err != nil {
			log.Warn().Err(err).Str("model", o.model).Msg("tokenizer unavailable, using estimate")
			return
		}
		o.enc = enc
	})
	if o.enc == nil {
		return len(text) / tokenEstimateRatio
	}
	return len(o.enc.Encode(text, nil, nil))
}

// tokenEstimateRatio is the approximate number of characters per token.
const tokenEstimateRatio = 4

// truncateToBudget trims text to the prompt token budget, cutting at a line
// boundary where possible.
func (o *Orchestrator) truncateToBudget(text string) string {
	if o.maxPromptTokens <= 0 || o.countTokens(text) <= o.maxPromptTokens {
		return text
	}
	lines := strings.Split(text, "\n")
	for len(lines) > 1 {
		lines = lines[:len(lines)-1]
		candidate := strings.Join(lines, "\n")
		if o.countTokens(candidate) <= o.maxPromptTokens {
			return candidate
		}
	}
	runes := []rune(text)
	if max := o.maxPromptTokens * tokenEstimateRatio; len(runes) > max {
		return string(runes[:max])
	}
	return text
}
