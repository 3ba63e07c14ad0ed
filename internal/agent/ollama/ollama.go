// Package ollama implements the questioning agent against a local Ollama
// chat endpoint.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/scamwatch/scamwatch-backend/internal/agent"
	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/tools"
)

const defaultBaseURL = "http://localhost:11434"

const systemPrompt = `You are a police intake assistant helping a scam victim file a report.
Ask one focused follow-up question at a time and stay empathetic.
Use the RETRIEVED CONTEXT below to ground your questions in similar past cases.
After your reply, emit the scam details you have learned so far as a fenced json block, e.g.:
` + "```json\n{\"scam_type\": \"ECOMMERCE\"}\n```"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// Agent talks to Ollama's /api/chat. One instance is built per
// conversation by the factory and reused across turns.
type Agent struct {
	client *resty.Client
	model  string
	topK   int
	log    zerolog.Logger
}

// NewFactory returns an agent.Factory producing Ollama chat agents.
// baseURL falls back to OLLAMA_URL, then localhost.
func NewFactory(baseURL, model string, timeout time.Duration, topK int, log zerolog.Logger) agent.Factory {
	return agent.FactoryFunc(func(_ context.Context) (agent.Agent, error) {
		if model == "" {
			return nil, fmt.Errorf("ollama chat model not configured")
		}
		if baseURL == "" {
			baseURL = os.Getenv("OLLAMA_URL")
		}
		if baseURL == "" {
			baseURL = defaultBaseURL
		}
		client := resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json")
		return &Agent{client: client, model: model, topK: topK, log: log}, nil
	})
}

func (a *Agent) Respond(ctx context.Context, req agent.Request) (*agent.Result, error) {
	msgs := []chatMessage{{Role: "system", Content: a.composeSystem(ctx, req)}}
	for _, ex := range req.History {
		role := "user"
		if ex.Role == model.SenderAI {
			role = "assistant"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: ex.Content})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Query})

	var out chatResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(chatRequest{Model: a.model, Messages: msgs, Stream: false}).
		SetResult(&out).
		Post("/api/chat")
	if err != nil {
		return nil, fmt.Errorf("ollama chat request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ollama chat status %d: %s", resp.StatusCode(), resp.String())
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ollama chat: %s", out.Error)
	}

	reply, fields := splitExtraction(out.Message.Content)
	if reply == "" {
		return nil, fmt.Errorf("ollama chat returned empty reply")
	}
	a.log.Debug().Int64("conversation_id", req.ConversationID).
		Int("history", len(req.History)).Int("fields", len(fields)).
		Msg("ollama chat turn completed")
	return &agent.Result{Reply: reply, Fields: fields}, nil
}

// composeSystem runs the augmented retrieval tool and folds the result
// into the system prompt. A degraded tool payload is passed through as-is;
// the model copes with an {"error": ...} context block.
func (a *Agent) composeSystem(ctx context.Context, req agent.Request) string {
	if req.Tools == nil {
		return systemPrompt
	}
	contextJSON := req.Tools.AugmentedPoliceTool(ctx, tools.Call{
		ConversationID: req.ConversationID,
		Query:          req.Query,
		TopK:           a.topK,
	})
	return systemPrompt + "\n\nRETRIEVED CONTEXT:\n" + contextJSON
}

// splitExtraction separates the conversational reply from the trailing
// fenced json block. A missing or malformed block yields nil fields.
func splitExtraction(content string) (string, map[string]interface{}) {
	start := strings.Index(content, "```json")
	if start < 0 {
		return strings.TrimSpace(content), nil
	}
	rest := content[start+len("```json"):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return strings.TrimSpace(content), nil
	}
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(rest[:end])), &fields); err != nil {
		return strings.TrimSpace(content), nil
	}
	reply := strings.TrimSpace(content[:start] + rest[end+len("```"):])
	return reply, fields
}
