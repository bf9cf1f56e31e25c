package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

var systemPrompts = map[string]string{
	"en": `You are a helpful and empathetic customer support assistant.
Keep responses concise (under 150 words), friendly, and professional.
Adjust your tone based on the user's sentiment:
- Positive: Be enthusiastic and supportive
- Neutral: Be helpful and informative
- Negative: Be understanding, apologetic, and solution-focused
If you cannot help with something, politely suggest contacting a human agent.`,
	"es": `Eres un asistente de atención al cliente útil y empático.
Mantén las respuestas concisas (menos de 150 palabras), amigables y profesionales.
Ajusta tu tono según el sentimiento del usuario:
- Positivo: Sé entusiasta y solidario
- Neutral: Sé útil e informativo
- Negativo: Sé comprensivo, disculpándote y enfocado en soluciones
Si no puedes ayudar con algo, sugiere cortésmente contactar a un agente humano.`,
}

// OpenAIResponder implements Responder against OpenAI-compatible
// chat-completions APIs.
type OpenAIResponder struct {
	apiKey  string
	apiBase string
	model   string
	client  *http.Client
}

func NewOpenAIResponder(apiKey, apiBase, model string) *OpenAIResponder {
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	apiBase = strings.TrimRight(apiBase, "/")
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	return &OpenAIResponder{
		apiKey:  apiKey,
		apiBase: apiBase,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (r *OpenAIResponder) Generate(ctx context.Context, message string, rc Context) (string, error) {
	system := systemPrompts[rc.Language]
	if system == "" {
		system = systemPrompts["en"]
	}
	if rc.UserName != "" {
		system += fmt.Sprintf("\nUser's name is %s.", rc.UserName)
	}
	reply, err := r.chat(ctx, chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: message},
		},
		MaxTokens:   200,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}
	return reply, nil
}

func (r *OpenAIResponder) AnalyzeSentiment(ctx context.Context, text string) string {
	reply, err := r.chat(ctx, chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: "Analyze the sentiment of the following text. Respond with only one word: positive, negative, or neutral."},
			{Role: "user", Content: text},
		},
		MaxTokens:   10,
		Temperature: 0.1,
	})
	if err != nil {
		slog.Warn("sentiment analysis failed", "error", err)
		return "neutral"
	}
	sentiment := strings.ToLower(strings.TrimSpace(reply))
	switch sentiment {
	case "positive", "negative", "neutral":
		return sentiment
	}
	return "neutral"
}

func (r *OpenAIResponder) DetectLanguage(ctx context.Context, text string) string {
	reply, err := r.chat(ctx, chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: "Detect the language of the following text. Respond with only the language code: en for English, es for Spanish, or en if uncertain."},
			{Role: "user", Content: text},
		},
		MaxTokens:   5,
		Temperature: 0.1,
	})
	if err != nil {
		slog.Warn("language detection failed", "error", err)
		return "en"
	}
	lang := strings.ToLower(strings.TrimSpace(reply))
	if lang == "en" || lang == "es" {
		return lang
	}
	return "en"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (r *OpenAIResponder) chat(ctx context.Context, req chatRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", r.apiBase+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("api status %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
