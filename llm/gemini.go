package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiModel   = "gemini-2.5-flash"
)

// Gemini talks to the Google generative language API.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// GeminiOption configures a Gemini backend.
type GeminiOption func(*Gemini)

// WithAPIKey sets the API key explicitly instead of reading
// GEMINI_API_KEY.
func WithAPIKey(key string) GeminiOption {
	return func(g *Gemini) { g.apiKey = key }
}

// WithModel sets the default model for requests that don't name one.
func WithModel(model string) GeminiOption {
	return func(g *Gemini) { g.model = model }
}

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) GeminiOption {
	return func(g *Gemini) { g.baseURL = url }
}

// WithHTTPClient overrides the HTTP client. The default has no client
// timeout; callers control deadlines through ctx.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *Gemini) { g.client = c }
}

// NewGemini creates a backend. Without WithAPIKey the key comes from the
// GEMINI_API_KEY environment variable.
func NewGemini(opts ...GeminiOption) *Gemini {
	g := &Gemini{
		apiKey:  os.Getenv("GEMINI_API_KEY"),
		model:   defaultGeminiModel,
		baseURL: defaultGeminiBaseURL,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
	SafetySettings   []geminiSafety  `json:"safetySettings,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	Seed             *int64  `json:"seed,omitempty"`
}

type geminiSafety struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate implements LLM.
func (g *Gemini) Generate(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}

	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}},
		},
		GenerationConfig: geminiGenConfig{
			Temperature:      req.Temperature,
			MaxOutputTokens:  req.MaxOutputTokens,
			ResponseMIMEType: req.ResponseMIMEType,
			Seed:             req.Seed,
		},
		SafetySettings: []geminiSafety{
			{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
			{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
			{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
			{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Status: resp.Status}
		var parsed geminiErrorResponse
		if json.Unmarshal(data, &parsed) == nil {
			apiErr.Message = parsed.Error.Message
			if parsed.Error.Status != "" {
				apiErr.Status = parsed.Error.Status
			}
		}
		return nil, apiErr
	}

	var out geminiResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: %s", ErrBlocked, out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return nil, ErrEmptyResponse
	}
	cand := out.Candidates[0]
	if cand.FinishReason == "SAFETY" {
		return nil, fmt.Errorf("%w: finish reason SAFETY", ErrBlocked)
	}

	var text string
	for _, part := range cand.Content.Parts {
		text += part.Text
	}
	if text == "" {
		return nil, ErrEmptyResponse
	}

	return &Response{
		Text:         text,
		InputTokens:  out.UsageMetadata.PromptTokenCount,
		OutputTokens: out.UsageMetadata.CandidatesTokenCount,
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}
