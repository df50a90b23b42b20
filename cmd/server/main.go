package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adya14/AuraAI/internal/config"
	"github.com/adya14/AuraAI/internal/httpserver"
	"github.com/adya14/AuraAI/internal/interview"
	"github.com/adya14/AuraAI/internal/llm"
	"github.com/adya14/AuraAI/internal/mediastream"
	"github.com/adya14/AuraAI/internal/telephony"
	"github.com/adya14/AuraAI/internal/transcript"
	"github.com/adya14/AuraAI/internal/tts"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	responder := llm.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel)
	engine := interview.NewEngine(interview.NewMemoryStore(), responder,
		cfg.MaxQuestions, interview.DefaultResponderTimeout)
	dialer := telephony.New(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioNumber)

	stream := mediastream.NewHandler(engine,
		transcript.NewWhisperClient(cfg.OpenAIKey),
		tts.NewOpenAIClient(cfg.OpenAIKey),
		tts.PCMSampleRate, cfg.Role, cfg.JobDescription)

	e := httpserver.New()
	httpserver.NewHandlers(engine, dialer, stream, httpserver.Options{
		Role:             cfg.Role,
		JobDescription:   cfg.JobDescription,
		RecipientNumber:  cfg.RecipientNumber,
		PublicBaseURL:    cfg.PublicBaseURL,
		TwilioAuthToken:  cfg.TwilioAuthToken,
		VerifySignatures: true,
	}).Register(e)

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddress)
		serverErrors <- e.Start(cfg.HTTPAddress)
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = e.Close()
	}
}
