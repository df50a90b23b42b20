package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adya14/AuraAI/internal/interview"
)

const chatCompletionsEndpoint = "https://api.openai.com/v1/chat/completions"

const ratingInstruction = "Now that the interview is complete, rate the candidate out of 10 based on their performance."

// OpenAIClient generates interviewer utterances via the chat completions API.
type OpenAIClient struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = "gpt-4"
	}
	return &OpenAIClient{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		APIKey:     apiKey,
		Model:      model,
	}
}

// interviewSystemPrompt instructs the model to run a fixed-length structured
// interview and to rate the candidate in a parseable format at the end.
func interviewSystemPrompt(role, jobDescription string) string {
	return fmt.Sprintf("You are Askara, an AI interviewer conducting a phone interview for a %s role. "+
		"Your goal is to assess the candidate based on their responses and evaluate their suitability for the role. "+
		"Ask exactly 2 structured questions, changing the topic with each question. "+
		"The questions should be directly based on the job description and the key skills required. "+
		"Do NOT simply ask follow-up questions. Cover different topics such as experience, technical skills, "+
		"problem-solving, teamwork, and leadership. Ask only ONE question at a time. "+
		"STRICTLY DO NOT ask more than one question in a single response. "+
		"Each question should be a maximum of 3 lines long and be precise and straightforward. "+
		"After asking 2 questions, say: 'Thank you for your time. Do you have any questions for me?'. "+
		"If the candidate asks a question, answer it intelligently and then conclude the interview. "+
		"At the very end, evaluate the candidate's overall performance based on their responses throughout the interview. "+
		"Rate them on a scale of 1 to 10, considering their technical knowledge, problem-solving ability, "+
		"communication skills, and fit for the role. Your response should be formatted as follows:\n\n"+
		"'Candidate Rating: X/10'\n'Justification: [Provide a brief reason why you rated the candidate this way]'\n"+
		"You must provide a numerical rating and a justification. You have to be strict in this rating and only give "+
		"a good rating if the candidate very closely matches the role.\nJob Description:\n%s",
		role, jobDescription)
}

// Respond implements interview.Responder. History is replayed verbatim as
// conversation context; when requestRating is true a rating instruction is
// appended and the returned text is the model's judgment of the candidate.
func (c *OpenAIClient) Respond(ctx context.Context, history []interview.Turn, utterance, role, jobDescription string, requestRating bool) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("openai api key missing")
	}

	messages := []chatMessage{{Role: "system", Content: interviewSystemPrompt(role, jobDescription)}}
	for _, t := range history {
		r := "user"
		if t.Speaker == interview.SpeakerInterviewer {
			r = "assistant"
		}
		messages = append(messages, chatMessage{Role: r, Content: t.Text})
	}
	if utterance != "" {
		messages = append(messages, chatMessage{Role: "user", Content: utterance})
	}
	if requestRating {
		messages = append(messages, chatMessage{Role: "user", Content: ratingInstruction})
	}

	reqBody, _ := json.Marshal(chatCompletionsRequest{Model: c.Model, Messages: messages})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, chatCompletionsEndpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai error: status=%d body=%s", resp.StatusCode, string(b))
	}
	var cr chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices")
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}
