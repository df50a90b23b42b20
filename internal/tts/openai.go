package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const speechEndpoint = "https://api.openai.com/v1/audio/speech"

// PCMSampleRate is the rate of the raw PCM the speech API returns.
// The carrier bridge downsamples this to 8kHz µ-law.
const PCMSampleRate = 24000

// OpenAIClient synthesizes speech via the OpenAI TTS API.
type OpenAIClient struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
	Voice      string
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		APIKey:     apiKey,
		Model:      "tts-1",
		Voice:      "alloy",
	}
}

// Synthesize returns the spoken text as 16-bit little-endian mono PCM at
// PCMSampleRate.
func (c *OpenAIClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("tts api key missing")
	}
	if text == "" {
		return nil, fmt.Errorf("tts: empty text")
	}

	reqBody, _ := json.Marshal(speechRequest{
		Model:          c.Model,
		Voice:          c.Voice,
		Input:          text,
		ResponseFormat: "pcm",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, speechEndpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tts error: status=%d body=%s", resp.StatusCode, string(b))
	}
	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("tts: empty audio response")
	}
	return pcm, nil
}
