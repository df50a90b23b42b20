package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const transcriptionsEndpoint = "https://api.openai.com/v1/audio/transcriptions"

// ErrNoSpeech is returned when the audio contained no recognizable speech.
// Callers re-prompt instead of failing the call.
var ErrNoSpeech = errors.New("transcript: no speech detected")

// WhisperClient transcribes recorded audio via the OpenAI transcription API.
type WhisperClient struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func NewWhisperClient(apiKey string) *WhisperClient {
	return &WhisperClient{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		APIKey:     apiKey,
		Model:      "whisper-1",
	}
}

// Transcribe sends a WAV-wrapped utterance and returns the trimmed transcript.
func (c *WhisperClient) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("whisper api key missing")
	}
	if len(wav) == 0 {
		return "", fmt.Errorf("transcript: empty audio payload")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(wav); err != nil {
		return "", err
	}
	if err := mw.WriteField("model", c.Model); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, transcriptionsEndpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("whisper error: status=%d body=%s", resp.StatusCode, string(b))
	}
	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", err
	}
	text := strings.TrimSpace(tr.Text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}
