package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPSynthesizer implementa Synthesizer contra una API OpenAI-compatible
// de text-to-speech.
type HTTPSynthesizer struct {
	baseURL string
	apiKey  string
	model   string
	voice   string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPSynthesizer(baseURL, apiKey, model, voice string, logger *zap.Logger) *HTTPSynthesizer {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPSynthesizer{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		voice:   voice,
		client:  &http.Client{Timeout: 120 * time.Second},
		logger:  logger,
	}
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	reqBody := speechRequest{
		Model:          s.model,
		Voice:          s.voice,
		Input:          text,
		ResponseFormat: "mp3",
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/audio/speech", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Warn("speech error response", zap.Int("status", resp.StatusCode), zap.ByteString("body", audio))
		return nil, fmt.Errorf("speech http error: status=%d", resp.StatusCode)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech empty response")
	}
	return audio, nil
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format,omitempty"`
}
