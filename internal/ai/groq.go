package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// GroqClient talks to the Groq OpenAI-compatible chat completions API.
type GroqClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

func NewGroqClient(apiKey, model string) *GroqClient {
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &GroqClient{
		BaseURL: "https://api.groq.com/openai/v1",
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *GroqClient) Name() string { return "groq" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *GroqClient) Analyze(ctx context.Context, items []Item) ([]Analysis, error) {
	if len(items) == 0 {
		return nil, nil
	}

	reqBody := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: analystSystemPrompt},
			{Role: "user", Content: buildBatchPrompt(items)},
		},
		Temperature: 0.2,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("groq request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("groq returned status: %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("groq API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("groq returned no choices")
	}

	return parseAnalyses(parsed.Choices[0].Message.Content)
}

const analystSystemPrompt = `Você é um analista de licitações de uma distribuidora de material médico-hospitalar que atua no Maranhão, Piauí e Pará. Responda SOMENTE com JSON válido.`

func buildBatchPrompt(items []Item) string {
	var b strings.Builder
	b.WriteString("Analise as licitações abaixo. Para CADA uma, gere um resumo de 1-2 frases do objeto, uma nota de oportunidade de 0 a 100 e uma avaliação curta de risco (jurídico, logístico ou de margem).\n\n")
	for _, it := range items {
		fmt.Fprintf(&b, "id_interno: %s\nTítulo: %s\nÓrgão: %s (%s - %s)\nTexto: %s\n\n",
			it.ID, it.Titulo, it.Orgao, it.Cidade, it.Estado, truncate(it.Texto, 1500))
	}
	b.WriteString(`Responda SOMENTE com um array JSON neste formato, repetindo o id_interno recebido:
[{"id_interno": "...", "resumo": "...", "nota": 0, "risco": "..."}]`)
	return b.String()
}

// truncate cuts to at most maxLen bytes on a rune boundary.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen]
}
