package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	jwtware "github.com/gofiber/jwt/v3"
	jwtv4 "github.com/golang-jwt/jwt/v4"

	"github.com/illegalcall/wodsense/internal/athlete"
	"github.com/illegalcall/wodsense/internal/config"
	"github.com/illegalcall/wodsense/internal/credits"
	"github.com/illegalcall/wodsense/internal/feedback"
	"github.com/illegalcall/wodsense/internal/pipeline"
	"github.com/illegalcall/wodsense/internal/wods"
	"github.com/illegalcall/wodsense/pkg/database"
)

// Authenticator validates login credentials and returns the account id.
type Authenticator interface {
	ValidateCredentials(email, password string) (string, error)
}

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	db        *database.Clients
	auth      Authenticator
	ledger    *credits.Ledger
	assembler *athlete.Assembler
	store     *wods.Store
	pipeline  *pipeline.Pipeline
	feedback  *feedback.Generator
	logger    *slog.Logger
}

type Deps struct {
	Auth      Authenticator
	Ledger    *credits.Ledger
	Assembler *athlete.Assembler
	Store     *wods.Store
	Pipeline  *pipeline.Pipeline
	Feedback  *feedback.Generator
}

func NewServer(cfg *config.Config, db *database.Clients, deps Deps) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: int(cfg.Storage.MaxImageSize) + 1024*1024,
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status}\n",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Server.MaxRequests,
		Expiration: cfg.Server.RequestTimeout,
	}))

	server := &Server{
		app:       app,
		cfg:       cfg,
		db:        db,
		auth:      deps.Auth,
		ledger:    deps.Ledger,
		assembler: deps.Assembler,
		store:     deps.Store,
		pipeline:  deps.Pipeline,
		feedback:  deps.Feedback,
		logger:    slog.Default(),
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	api := s.app.Group("/api")

	// Public routes
	api.Post("/login", s.handleLogin)

	// Protected routes
	protected := api.Use(jwtware.New(jwtware.Config{
		SigningKey: []byte(s.cfg.JWT.Secret),
	}))
	protected.Post("/analyze", s.handleAnalyze)
	protected.Get("/credits", s.handleGetCredits)
	protected.Get("/profile", s.handleGetProfile)
	protected.Put("/profile", s.handleUpsertProfile)
	protected.Get("/wods", s.handleListWods)
	protected.Get("/wods/:id", s.handleGetWod)
	protected.Delete("/wods/:id", s.handleDeleteWod)
	protected.Post("/wods/:id/result", s.handleSaveResult)
	protected.Post("/wods/:id/feedback", s.handleGenerateFeedback)
}

func (s *Server) Start() error {
	return s.app.Listen(s.cfg.Server.Port)
}

// accountID extracts the authenticated account from the verified JWT.
// An empty return means the request is unauthenticated.
func accountID(c *fiber.Ctx) string {
	token, ok := c.Locals("user").(*jwtv4.Token)
	if !ok || token == nil {
		return ""
	}
	claims, ok := token.Claims.(jwtv4.MapClaims)
	if !ok {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}
