// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/taskflowhq/taskflow/internal/agent"
	"github.com/taskflowhq/taskflow/internal/audit"
	"github.com/taskflowhq/taskflow/internal/auth"
	"github.com/taskflowhq/taskflow/internal/config"
	"github.com/taskflowhq/taskflow/internal/email"
	"github.com/taskflowhq/taskflow/internal/embed"
	"github.com/taskflowhq/taskflow/internal/handler"
	"github.com/taskflowhq/taskflow/internal/llm"
	"github.com/taskflowhq/taskflow/internal/middleware"
	"github.com/taskflowhq/taskflow/internal/rbac"
	"github.com/taskflowhq/taskflow/internal/repository"
	"github.com/taskflowhq/taskflow/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "startup error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize structured logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   a.Key,
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	}))
	slog.SetDefault(log)

	// Load configuration
	_ = godotenv.Load()
	cfg := config.Load()

	// Initialize database
	db, err := setupDatabase(cfg)
	if err != nil {
		return fmt.Errorf("setting up database: %w", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	embedRepo := repository.NewEmbedRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	agentRunRepo := repository.NewAgentRunRepository(db)

	// Initialize auth services
	passwordHasher := auth.NewPasswordHasher()
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpiryPeriod)

	// Initialize email service. Without a Sendgrid key invitation emails are
	// skipped; the API still works.
	var emailService *email.Service
	if cfg.Sendgrid.APIKey != "" {
		emailService, err = email.NewEmailService(cfg, email.ProviderSendgrid)
		if err != nil {
			return fmt.Errorf("initializing email service: %w", err)
		}
	}

	// Permission checker and audit recorder
	checker := rbac.NewChecker(taskRepo, projectRepo)
	auditService := audit.NewService(auditRepo)

	// Domain services
	userService := service.NewUserService(
		userRepo,
		orgRepo,
		membershipRepo,
		invitationRepo,
		passwordHasher,
		tokenManager,
		emailService,
		cfg,
	)
	taskService := service.NewTaskService(taskRepo, projectRepo, membershipRepo, checker)
	projectService := service.NewProjectService(projectRepo, checker)
	widgetService := service.NewEmbedWidgetService(embedRepo, projectRepo)
	gate := embed.NewGate(embedRepo, taskRepo)

	// Agent orchestration. Without an API key the endpoint reports the
	// model as unavailable instead of failing startup.
	var orchestrator *agent.Orchestrator
	chatClient, err := llm.NewClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
	if err != nil {
		log.Warn("agent disabled", "reason", err.Error())
	} else {
		toolset := agent.NewToolset(projectRepo, membershipRepo, taskRepo)
		orchestrator = agent.NewOrchestrator(chatClient, toolset, agentRunRepo, validator.New())
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userService, auditService)
	taskHandler := handler.NewTaskHandler(taskService, auditService)
	projectHandler := handler.NewProjectHandler(projectService, auditService)
	embedHandler := handler.NewEmbedHandler(widgetService, auditService)
	embedPublicHandler := handler.NewEmbedPublicHandler(gate)
	auditLogHandler := handler.NewAuditLogHandler(auditService)
	memberHandler := handler.NewMemberHandler(membershipRepo, checker)
	healthHandler := handler.NewHealthHandler(db)

	// Create router
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", healthHandler.HealthHandler)

	// Public embed surface. No session; access is decided by the widget's
	// domain allow list.
	r.Route("/embed/{widgetID}", func(r chi.Router) {
		r.Get("/", embedPublicHandler.ViewHandler)
		r.Post("/tasks/{taskID}/toggle", embedPublicHandler.ToggleTaskHandler)
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Route("/auth", func(r chi.Router) {
			r.Use(chimw.AllowContentType("application/json"))

			r.Post("/signup", authHandler.SignupHandler)
			r.Post("/login", authHandler.LoginHandler)
			r.Post("/invitations/accept", authHandler.AcceptInviteHandler)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(chimw.AllowContentType("application/json"))
			r.Use(middleware.AuthMiddleware(tokenManager, userRepo, membershipRepo))

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.ListHandler)
				r.Post("/", taskHandler.CreateHandler)
				r.Get("/{taskID}", taskHandler.GetHandler)
				r.Patch("/{taskID}", taskHandler.UpdateHandler)
				r.Delete("/{taskID}", taskHandler.DeleteHandler)
			})

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectHandler.ListHandler)
				r.Post("/", projectHandler.CreateHandler)
				r.Get("/{projectID}", projectHandler.GetHandler)
				r.Patch("/{projectID}", projectHandler.UpdateHandler)
				r.Delete("/{projectID}", projectHandler.DeleteHandler)
			})

			r.Route("/embeds", func(r chi.Router) {
				r.Get("/", embedHandler.ListHandler)
				r.Post("/", embedHandler.CreateHandler)
				r.Get("/{widgetID}", embedHandler.GetHandler)
			})

			r.Route("/members", func(r chi.Router) {
				r.Get("/", memberHandler.SearchHandler)
				r.Post("/invite", authHandler.InviteHandler)
			})

			r.Get("/audit-logs", auditLogHandler.QueryHandler)

			if orchestrator != nil {
				agentHandler := handler.NewAgentHandler(orchestrator, auditService)
				r.Post("/agent/run", agentHandler.RunHandler)
			}
		})
	})

	// Create server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Server error channel
	serverErrors := make(chan error, 1)

	// Start server
	go func() {
		log.Info("server starting", "port", cfg.Server.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Shutdown channel
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt)

	// Wait for shutdown or error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("shutdown started", "signal", sig)

		// Give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Gracefully shutdown the server
		if err := srv.Shutdown(ctx); err != nil {
			// If shutdown times out, forcefully close
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

func setupDatabase(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
		cfg.Database.SearchPath,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting database instance: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func loggingMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info("request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"duration", time.Since(start),
					"status", ww.Status(),
					"size", ww.BytesWritten(),
					"requestID", chimw.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func recoveryMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					log.Error("panic recovered",
						"error", errors.New("panic recovered"),
						"panic", rvr,
						"stack", string(debug.Stack()),
						"requestID", chimw.GetReqID(r.Context()),
					)

					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte("{\"error\":\"error encountered\"}"))
					return
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
