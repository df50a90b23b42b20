package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioNumber     string
	RecipientNumber  string
	// PublicBaseURL is the externally reachable base URL Twilio calls back on.
	PublicBaseURL string

	OpenAIKey   string
	OpenAIModel string

	Role           string
	JobDescription string
	MaxQuestions   int
}

// Load reads the environment (and .env when present) and validates it.
// Missing required variables are a startup error, not a deferred runtime one.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := Config{
		HTTPAddress:      ":" + getEnv("PORT", "5050"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioNumber:     os.Getenv("TWILIO_PHONE_NUMBER"),
		RecipientNumber:  os.Getenv("RECIPIENT_PHONE_NUMBER"),
		PublicBaseURL:    os.Getenv("BASE_URL"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4"),
		Role:             getEnv("INTERVIEW_ROLE", "Software Engineer"),
		JobDescription:   getEnv("JOB_DESCRIPTION", "Software Engineer role requiring Python, cloud, and AI experience."),
		MaxQuestions:     2,
	}

	if v := os.Getenv("MAX_QUESTIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("config: invalid MAX_QUESTIONS %q", v)
		}
		cfg.MaxQuestions = n
	}

	required := []struct{ name, value string }{
		{"TWILIO_ACCOUNT_SID", cfg.TwilioAccountSID},
		{"TWILIO_AUTH_TOKEN", cfg.TwilioAuthToken},
		{"TWILIO_PHONE_NUMBER", cfg.TwilioNumber},
		{"RECIPIENT_PHONE_NUMBER", cfg.RecipientNumber},
		{"BASE_URL", cfg.PublicBaseURL},
		{"OPENAI_API_KEY", cfg.OpenAIKey},
	}
	for _, req := range required {
		if req.value == "" {
			return Config{}, fmt.Errorf("config: missing required environment variable %s", req.name)
		}
	}

	log.Printf("config: HTTP_ADDRESS=%s BASE_URL=%s role=%q maxQuestions=%d",
		cfg.HTTPAddress, cfg.PublicBaseURL, cfg.Role, cfg.MaxQuestions)
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
