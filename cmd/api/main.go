package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/illegalcall/wodsense/internal/analysis"
	"github.com/illegalcall/wodsense/internal/api"
	"github.com/illegalcall/wodsense/internal/athlete"
	"github.com/illegalcall/wodsense/internal/config"
	"github.com/illegalcall/wodsense/internal/credits"
	"github.com/illegalcall/wodsense/internal/events"
	"github.com/illegalcall/wodsense/internal/feedback"
	"github.com/illegalcall/wodsense/internal/pipeline"
	"github.com/illegalcall/wodsense/internal/pkg/supabase"
	"github.com/illegalcall/wodsense/internal/wods"
	"github.com/illegalcall/wodsense/pkg/database"
	"github.com/illegalcall/wodsense/pkg/kafka"
)

func main() {
	// Load .env if present; real environments set vars directly.
	_ = godotenv.Load()

	cfg := config.LoadConfig()

	// Initialize database clients
	db, err := database.NewClients(cfg.Database.URL, cfg.Redis.Addr)
	if err != nil {
		slog.Error("Failed to initialize database clients", "error", err)
		os.Exit(1)
	}
	defer db.DB.Close()
	slog.Info("✅ Connected to databases")

	if err := db.CreateTables(); err != nil {
		slog.Error("Failed to create tables", "error", err)
		os.Exit(1)
	}

	// Auth collaborator
	auth, err := supabase.NewAuth(cfg.Supabase.URL, cfg.Supabase.ServiceKey)
	if err != nil {
		slog.Error("Failed to initialize Supabase auth", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Connected to Supabase")

	// Generative model client
	gemini, err := analysis.NewGeminiClient(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, cfg.Gemini.Timeout)
	if err != nil {
		slog.Error("Failed to initialize Gemini client", "error", err)
		os.Exit(1)
	}

	// Kafka producer for analysis events
	producer, err := kafka.NewProducer(cfg.Kafka.Broker, cfg.Kafka.RetryMax, cfg.Kafka.RetryBackoff)
	if err != nil {
		slog.Error("Failed to create Kafka producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()
	slog.Info("✅ Connected to Kafka")

	uploader := wods.NewSupabaseUploader(cfg.Supabase.URL, cfg.Supabase.ServiceKey, cfg.Storage.Bucket)

	ledger := credits.NewLedger(db.DB, cfg.Credits.Starter)
	assembler := athlete.NewAssembler(db.DB)
	invoker := analysis.NewInvoker(gemini, cfg.Gemini.AnalysisModel, cfg.Gemini.Timeout)
	store := wods.NewStore(db.DB, db.Redis, uploader, cfg.Storage.EphemeralTTL)
	publisher := events.NewPublisher(producer, cfg.Kafka.Topic)
	pipe := pipeline.New(ledger, assembler, invoker, store, publisher)
	feedbackGen := feedback.NewGenerator(gemini, store, cfg.Gemini.FeedbackModel, cfg.Gemini.Timeout)

	server := api.NewServer(cfg, db, api.Deps{
		Auth:      auth,
		Ledger:    ledger,
		Assembler: assembler,
		Store:     store,
		Pipeline:  pipe,
		Feedback:  feedbackGen,
	})
	if err := server.Start(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}
