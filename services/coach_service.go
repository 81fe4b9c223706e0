package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"backend/apperror"
	"backend/logger"
)

const maxCoachMessageLen = 1000
const maxHistoryTurns = 10

// Guardrail system prompt for the diet-coaching assistant. The app serves
// users at risk of disordered eating, so the assistant must never diagnose,
// never push restriction, and never do calorie math.
const coachSystemPrompt = `You are the in-app diet coaching assistant.

Absolute rules:
1. You do not treat or diagnose. Recommend consulting a professional instead.
2. Answer only from the provided knowledge base and context.
3. Never encourage eating disorders or extreme dietary restriction.
4. Never produce answers that fuel calorie-counting compulsion.
5. Never label a specific food as "bad food".
6. If the user mentions self-harm, extreme dieting or a mental-health
   crisis, immediately recommend professional help.

Answering style:
- Explain food quality through the natural food index (NOVA classification).
- Prefer positive swaps: "how about trying this instead?"
- Highlight the health benefits of traditional fermented foods.
- Keep a warm, encouraging tone.`

// CoachService proxies the external AI provider. The API key never reaches
// clients; guardrails and history sanitizing happen here.
type CoachService struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewCoachService() *CoachService {
	base := os.Getenv("COACH_BASE_URL")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	model := os.Getenv("COACH_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &CoachService{
		apiKey:  os.Getenv("COACH_API_KEY"),
		baseURL: base,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type CoachMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CoachRequest struct {
	UserMessage string         `json:"user_message"`
	DietContext string         `json:"diet_context"`
	UserContext string         `json:"user_context"`
	History     []CoachMessage `json:"conversation_history"`
	Stream      bool           `json:"stream"`
}

type chatPayload struct {
	Model       string         `json:"model"`
	Messages    []CoachMessage `json:"messages"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Temperature float64        `json:"temperature,omitempty"`
	Stream      bool           `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message CoachMessage `json:"message"`
	} `json:"choices"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// BuildMessages validates the request and assembles the upstream message
// list: guardrail prompt (+context), sanitized history, then the user turn.
// Any "system" role smuggled into the history is stripped to block prompt
// injection, and only the last 10 turns are kept.
func (s *CoachService) BuildMessages(req CoachRequest) ([]CoachMessage, error) {
	msg := strings.TrimSpace(req.UserMessage)
	if msg == "" {
		return nil, apperror.Validation("message is empty")
	}
	if len(req.UserMessage) > maxCoachMessageLen {
		return nil, apperror.Validation("message is too long (max 1000 characters)")
	}

	system := coachSystemPrompt
	var ctxParts []string
	if req.DietContext != "" {
		ctxParts = append(ctxParts, req.DietContext)
	}
	if req.UserContext != "" {
		ctxParts = append(ctxParts, req.UserContext)
	}
	if len(ctxParts) > 0 {
		system += "\n\nCurrent user context:\n" + strings.Join(ctxParts, "\n")
	}

	history := make([]CoachMessage, 0, len(req.History))
	for _, h := range req.History {
		if h.Role != "user" && h.Role != "assistant" {
			continue
		}
		history = append(history, h)
	}
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	messages := make([]CoachMessage, 0, len(history)+2)
	messages = append(messages, CoachMessage{Role: "system", Content: system})
	messages = append(messages, history...)
	messages = append(messages, CoachMessage{Role: "user", Content: req.UserMessage})
	return messages, nil
}

// Chat runs one non-streaming exchange and returns the assistant reply.
func (s *CoachService) Chat(ctx context.Context, req CoachRequest) (string, error) {
	messages, err := s.BuildMessages(req)
	if err != nil {
		return "", err
	}

	resp, err := s.send(ctx, messages, false)
	if err != nil {
		logger.Error("coach upstream call failed", "error", err)
		return "", apperror.Upstream(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperror.Upstream(err)
	}
	if resp.StatusCode != http.StatusOK {
		logger.Error("coach upstream error", "status", resp.StatusCode, "body", string(body))
		return "", apperror.Upstream(fmt.Errorf("upstream status %d", resp.StatusCode))
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", apperror.Upstream(err)
	}
	if len(cr.Choices) == 0 {
		return "", apperror.Upstream(fmt.Errorf("empty completion"))
	}
	return cr.Choices[0].Message.Content, nil
}

// ChatStream runs a streaming exchange, delivering text fragments on out
// until the upstream finishes. The channel is closed on return. Cancelling
// ctx stops the stream.
func (s *CoachService) ChatStream(ctx context.Context, req CoachRequest, out chan<- string) error {
	defer close(out)

	messages, err := s.BuildMessages(req)
	if err != nil {
		return err
	}

	resp, err := s.send(ctx, messages, true)
	if err != nil {
		logger.Error("coach upstream call failed", "error", err)
		return apperror.Upstream(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		logger.Error("coach upstream error", "status", resp.StatusCode, "body", string(body))
		return apperror.Upstream(fmt.Errorf("upstream status %d", resp.StatusCode))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 512*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return nil
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		select {
		case out <- chunk.Choices[0].Delta.Content:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return apperror.Upstream(err)
	}
	return nil
}

func (s *CoachService) send(ctx context.Context, messages []CoachMessage, stream bool) (*http.Response, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("COACH_API_KEY not configured")
	}

	payload := chatPayload{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   600,
		Temperature: 0.7,
		Stream:      stream,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	return s.client.Do(req)
}
