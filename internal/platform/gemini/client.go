package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/eduplanner-backend/internal/pkg/httpx"
	"github.com/yungbote/eduplanner-backend/internal/platform/envutil"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.5-flash"
)

type Client interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
	// GenerateJSON requests schema-constrained output and decodes it into out.
	// Struct targets are validated with their `validate` tags.
	GenerateJSON(ctx context.Context, system string, user string, schema *Schema, out any) error
	Enabled() bool
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature *float64
}

func ConfigFromEnv() Config {
	cfg := Config{
		APIKey:     envutil.String("GEMINI_API_KEY", envutil.String("API_KEY", "")),
		BaseURL:    envutil.String("GEMINI_BASE_URL", defaultBaseURL),
		Model:      envutil.String("GEMINI_MODEL", defaultModel),
		Timeout:    time.Duration(envutil.Int("GEMINI_TIMEOUT_SECONDS", 120)) * time.Second,
		MaxRetries: envutil.Int("GEMINI_MAX_RETRIES", 0),
	}
	if raw := envutil.String("GEMINI_TEMPERATURE", ""); raw != "" {
		if t, err := strconv.ParseFloat(raw, 64); err == nil {
			cfg.Temperature = &t
		}
	}
	return cfg
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	httpClient  *http.Client
	maxRetries  int
	temperature *float64
	validate    *validator.Validate
}

// NewClient never fails: without an API key it returns a disabled client whose calls
// report ErrClientDisabled.
func NewClient(log *logger.Logger, cfg Config) Client {
	c := &client{
		log:         log.With("service", "GeminiClient"),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       cfg.Model,
		maxRetries:  cfg.MaxRetries,
		temperature: cfg.Temperature,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	c.httpClient = &http.Client{Timeout: timeout}
	if c.apiKey == "" {
		c.log.Warn("Gemini client disabled; GEMINI_API_KEY not set")
	}
	return c
}

func (c *client) Enabled() bool { return c.apiKey != "" }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema  `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func (c *client) newRequest(system, user string) *generateRequest {
	req := &generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: user}}}},
	}
	if strings.TrimSpace(system) != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	if c.temperature != nil {
		req.GenerationConfig = &generationConfig{Temperature: c.temperature}
	}
	return req
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	if !c.Enabled() {
		return "", ErrClientDisabled
	}
	var resp generateResponse
	if err := c.generate(ctx, "text", c.newRequest(system, user), &resp); err != nil {
		return "", err
	}
	text := resp.text()
	if strings.TrimSpace(text) == "" {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: blocked (%s)", ErrEmptyResponse, resp.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *client) GenerateJSON(ctx context.Context, system string, user string, schema *Schema, out any) error {
	if !c.Enabled() {
		return ErrClientDisabled
	}
	if schema == nil {
		return errors.New("schema required")
	}
	if out == nil || reflect.ValueOf(out).Kind() != reflect.Pointer {
		return errors.New("out must be a non-nil pointer")
	}
	req := c.newRequest(system, user)
	if req.GenerationConfig == nil {
		req.GenerationConfig = &generationConfig{}
	}
	req.GenerationConfig.ResponseMimeType = "application/json"
	req.GenerationConfig.ResponseSchema = schema

	var resp generateResponse
	if err := c.generate(ctx, "json", req, &resp); err != nil {
		return err
	}
	jsonText := strings.TrimSpace(resp.text())
	if jsonText == "" {
		return fmt.Errorf("%w: no candidate text", ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(jsonText), out); err != nil {
		return fmt.Errorf("%w: failed to parse model JSON: %v", ErrMalformedResponse, err)
	}
	if reflect.Indirect(reflect.ValueOf(out)).Kind() == reflect.Struct {
		if err := c.validate.Struct(out); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	return nil
}

func (c *client) generate(ctx context.Context, mode string, body *generateRequest, out *generateResponse) error {
	ctx, span := otel.Tracer("eduplanner/gemini").Start(ctx, "gemini.generateContent")
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", c.model),
		attribute.String("gemini.mode", mode),
	)
	path := "/v1beta/models/" + c.model + ":generateContent"
	err := c.doWithRetry(ctx, path, body, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *client) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, classify(resp.StatusCode, string(raw))
	}
	return resp, raw, nil
}

func (c *client) doWithRetry(ctx context.Context, path string, body any, out any) error {
	backoff := time.Second
	start := time.Now()
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resp, raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			c.log.Debug("Gemini request done", "path", path, "attempt", attempt+1, "duration_ms", time.Since(start).Milliseconds())
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("%w: gemini decode error: %v", ErrMalformedResponse, uErr)
			}
			return nil
		}
		if errors.Is(err, ErrInvalidCredential) || !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			c.log.Warn("Gemini request failed", "path", path, "attempt", attempt+1, "error", err.Error())
			return err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("Gemini request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return err
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}
