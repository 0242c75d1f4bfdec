package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"concretrack-backend/internal/clock"
	"concretrack-backend/internal/config"
	"concretrack-backend/internal/cron"
	"concretrack-backend/internal/database"
	"concretrack-backend/internal/email"
	"concretrack-backend/internal/handlers"
	"concretrack-backend/internal/middleware"
	"concretrack-backend/internal/storage"
)

func main() {
	// 1. Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Connect to PostgreSQL
	db := database.New(&cfg.DB)
	defer db.Close()

	// 3. Initialize file storage — R2 when configured, local otherwise
	var fileStore storage.Store
	if cfg.Upload.R2AccountID != "" {
		fileStore, err = storage.NewR2Store(
			cfg.Upload.R2AccountID, cfg.Upload.R2AccessKey, cfg.Upload.R2SecretKey,
			cfg.Upload.R2Bucket, cfg.Upload.R2PublicURL,
		)
		if err != nil {
			log.Fatalf("Failed to initialize R2 storage: %v", err)
		}
		log.Println("File storage: Cloudflare R2")
	} else {
		fileStore, err = storage.NewLocalStore(cfg.Upload.Dir, cfg.Upload.BaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize file storage: %v", err)
		}
		log.Println("File storage: local directory")
	}

	// 4. Select the mail sender for the daily digest
	var sender email.Sender
	if cfg.Email.APIKey != "" {
		sender = email.NewSendGridSender(cfg.Email.APIKey, cfg.Email.FromName, cfg.Email.FromAddress)
	} else {
		sender = email.NewConsoleSender()
	}

	clk := clock.Real{}

	// 5. Set up router with global middleware
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 6. Initialize handlers with their dependencies
	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret)
	userHandler := handlers.NewUserManagementHandler(db)
	dashboardHandler := handlers.NewDashboardHandler(db, clk)
	employeeHandler := handlers.NewEmployeeHandler(db, clk)
	documentHandler := handlers.NewDocumentHandler(db, clk)
	catalogHandler := handlers.NewCatalogHandler()
	clientHandler := handlers.NewClientHandler(db)
	scheduleHandler := handlers.NewScheduleHandler(db)
	proposalHandler := handlers.NewProposalHandler(db)
	measurementHandler := handlers.NewMeasurementHandler(db)
	overtimeHandler := handlers.NewOvertimeHandler(db)
	ncHandler := handlers.NewNonConformanceHandler(db)
	inventoryHandler := handlers.NewInventoryHandler(db)
	notificationHandler := handlers.NewNotificationHandler(db, clk)
	uploadHandler := handlers.NewUploadHandler(fileStore)
	activityHandler := handlers.NewActivityHandler(db)

	// Start background cron jobs
	cron.StartDigest(db, clk, sender, cfg.Email.DigestTo)

	// 7. Public routes (no authentication required)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ConcreTrack API"))
	})
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(db.Health())
	})

	// Auth routes — public, rate limited against brute force
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(rate.Every(12*time.Second), 5))
		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/login", authHandler.Login)
	})

	// Serve uploaded files (local storage serves from disk, R2 redirects)
	r.Get("/api/files/*", uploadHandler.ServeFile)

	// 8. Protected routes (require valid JWT)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.InjectBranchScope(db.GetPool()))

		// Current user profile
		r.Get("/api/auth/me", authHandler.GetMe)

		// File upload
		r.Post("/api/upload", uploadHandler.Upload)

		// Dashboard (read-only — accessible to all authenticated users)
		r.Get("/api/dashboard/metrics", dashboardHandler.Metrics)
		r.Get("/api/dashboard/compliance", dashboardHandler.ComplianceOverview)
		r.Get("/api/dashboard/expiry-alerts", dashboardHandler.ExpiryAlerts)
		r.Get("/api/dashboard/upcoming-pours", dashboardHandler.UpcomingPours)

		// Notifications (session-scoped, all authenticated users)
		r.Get("/api/notifications", notificationHandler.List)
		r.Post("/api/notifications/dismiss-all", notificationHandler.DismissAll)
		r.Post("/api/notifications/{id}/dismiss", notificationHandler.Dismiss)

		// Activity log (read-only)
		r.Get("/api/activity", activityHandler.List)

		// Document type catalog (read-only, compiled in)
		r.Get("/api/catalog/document-types", catalogHandler.ListDocumentTypes)

		// Read-only endpoints — accessible to viewers
		r.Get("/api/employees", employeeHandler.List)
		r.Get("/api/employees/export", employeeHandler.ExportCSV)
		r.Route("/api/employees/{id}", func(r chi.Router) {
			r.Get("/", employeeHandler.GetByID)
			r.Get("/documents", documentHandler.ListByEmployee)
		})
		r.Get("/api/clients", clientHandler.List)
		r.Get("/api/clients/{id}", clientHandler.GetByID)
		r.Get("/api/pours", scheduleHandler.List)
		r.Get("/api/pours/today", scheduleHandler.Today)
		r.Get("/api/proposals", proposalHandler.List)
		r.Get("/api/measurements", measurementHandler.List)
		r.Get("/api/measurements/summary", measurementHandler.Summary)
		r.Get("/api/measurements/export", measurementHandler.ExportCSV)
		r.Get("/api/overtime", overtimeHandler.List)
		r.Get("/api/overtime/summary", overtimeHandler.MonthSummary)
		r.Get("/api/nonconformances", ncHandler.List)
		r.Get("/api/nonconformances/types", ncHandler.ListTypes)
		r.Get("/api/inventory", inventoryHandler.List)

		// Write operations restricted to manager role and up
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireMinRole("manager"))

			// Employee write operations
			r.Post("/api/employees", employeeHandler.Create)
			r.Patch("/api/employees/{id}", employeeHandler.Update)
			r.Post("/api/employees/{id}/exit", employeeHandler.Exit)

			// Document write operations
			r.Post("/api/employees/{id}/documents", documentHandler.Create)
			r.Patch("/api/documents/{id}", documentHandler.Update)
			r.Post("/api/documents/{id}/clear", documentHandler.Clear)

			// Client write operations
			r.Post("/api/clients", clientHandler.Create)
			r.Patch("/api/clients/{id}", clientHandler.Update)

			// Pour scheduling
			r.Post("/api/pours", scheduleHandler.Create)
			r.Patch("/api/pours/{id}", scheduleHandler.Update)
			r.Delete("/api/pours/{id}", scheduleHandler.Delete)

			// Proposals and measurements
			r.Post("/api/proposals", proposalHandler.Create)
			r.Patch("/api/proposals/{id}/status", proposalHandler.UpdateStatus)
			r.Delete("/api/proposals/{id}", proposalHandler.Delete)
			r.Post("/api/measurements", measurementHandler.Create)
			r.Post("/api/measurements/generate", measurementHandler.Generate)
			r.Patch("/api/measurements/bulk-status", measurementHandler.BulkUpdateStatus)
			r.Patch("/api/measurements/{id}/status", measurementHandler.UpdateStatus)

			// Overtime
			r.Post("/api/overtime", overtimeHandler.Create)
			r.Delete("/api/overtime/{id}", overtimeHandler.Delete)

			// Non-conformances
			r.Post("/api/nonconformances", ncHandler.Create)
			r.Post("/api/nonconformances/{id}/resolve", ncHandler.Resolve)

			// Inventory
			r.Post("/api/inventory", inventoryHandler.Create)
			r.Post("/api/inventory/{id}/adjust", inventoryHandler.Adjust)
			r.Delete("/api/inventory/{id}", inventoryHandler.Delete)
		})

		// Destructive and account operations restricted to admin
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireMinRole("admin"))

			r.Delete("/api/employees/{id}", employeeHandler.Delete)
			r.Post("/api/employees/batch-delete", employeeHandler.BatchDelete)
			r.Delete("/api/clients/{id}", clientHandler.Delete)

			// User management
			r.Get("/api/users", userHandler.List)
			r.Patch("/api/users/{id}", userHandler.Update)
			r.Delete("/api/users/{id}", userHandler.Delete)
		})
	})

	// 9. Start server with graceful shutdown
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server started on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-done
	log.Println("Server stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited properly")
}
