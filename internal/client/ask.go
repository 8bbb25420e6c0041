package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/orrery-labs/orrery/internal/infra/llm"
)

// maxToolRounds bounds the model's tool-calling loop so a confused model
// cannot spin forever.
const maxToolRounds = 4

const systemPrompt = "You are a helpful assistant with access to NASA and " +
	"weather tools. Use them to answer questions about astronomy pictures, " +
	"Mars rover photos, near-earth asteroids, weather alerts, and forecasts. " +
	"Answer concisely from tool results."

// Step records one tool invocation made during an ask.
type Step struct {
	Tool    string          `json:"tool"`
	Args    json.RawMessage `json:"args"`
	Result  string          `json:"result"`
	IsError bool            `json:"is_error"`
}

// AskResult is the outcome of a natural-language question.
type AskResult struct {
	Answer       string `json:"answer"`
	Steps        []Step `json:"steps,omitempty"`
	UsedFallback bool   `json:"used_fallback,omitempty"`
}

// Asker mediates between an LLM and a tool server: it advertises the
// server's tools to the model, executes the calls the model requests,
// and feeds results back until the model produces a text answer.
type Asker struct {
	provider llm.LLMProvider
	tools    ToolCaller
}

func NewAsker(provider llm.LLMProvider, tools ToolCaller) *Asker {
	return &Asker{provider: provider, tools: tools}
}

// Ask answers a natural-language question. When the LLM provider is not
// reachable it falls back to keyword matching against the tool catalog,
// so the CLI stays usable without a local model.
func (a *Asker) Ask(ctx context.Context, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("ask: question is empty")
	}

	catalog, err := a.tools.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("ask: list tools: %w", err)
	}

	if err := a.provider.HealthCheck(ctx); err != nil {
		slog.Warn("llm provider unreachable, using keyword fallback", "error", err)
		return a.askFallback(ctx, question)
	}

	specs := make([]llm.ToolSpec, 0, len(catalog))
	for _, t := range catalog {
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.InputSchema,
		})
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: question},
	}

	result := &AskResult{}
	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.provider.ChatCompletion(ctx, llm.ChatRequest{
			Messages: messages,
			Tools:    specs,
		})
		if err != nil {
			return nil, fmt.Errorf("ask: chat completion: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			result.Answer = strings.TrimSpace(resp.Content)
			return result, nil
		}

		if resp.Content != "" {
			messages = append(messages, llm.Message{Role: "assistant", Content: resp.Content})
		}
		for _, call := range resp.ToolCalls {
			step := a.runTool(ctx, call.Name, call.Arguments)
			result.Steps = append(result.Steps, step)
			messages = append(messages, llm.Message{Role: "tool", Content: toolMessage(step)})
		}
	}

	return nil, fmt.Errorf("ask: model did not answer within %d tool rounds", maxToolRounds)
}

func (a *Asker) runTool(ctx context.Context, name string, args json.RawMessage) Step {
	step := Step{Tool: name, Args: args}

	res, err := a.tools.CallTool(ctx, name, args)
	if err != nil {
		step.IsError = true
		step.Result = err.Error()
		return step
	}
	step.Result = res.Text
	step.IsError = res.IsError
	return step
}

// toolMessage formats a step as the tool-role message fed back to the model.
func toolMessage(step Step) string {
	if step.IsError {
		return fmt.Sprintf("tool %s failed: %s", step.Tool, step.Result)
	}
	return step.Result
}

// askFallback answers without a model: parse the question into a single
// tool call and return the raw tool output.
func (a *Asker) askFallback(ctx context.Context, question string) (*AskResult, error) {
	name, args, err := parseQuery(question)
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}

	step := a.runTool(ctx, name, args)
	result := &AskResult{
		Answer:       step.Result,
		Steps:        []Step{step},
		UsedFallback: true,
	}
	if step.IsError {
		result.Answer = fmt.Sprintf("tool %s failed: %s", name, step.Result)
	}
	return result, nil
}
