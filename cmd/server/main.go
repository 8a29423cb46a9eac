package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/groupreg/backend/internal/config"
	"github.com/groupreg/backend/internal/database"
	"github.com/groupreg/backend/internal/handlers"
	"github.com/groupreg/backend/internal/middleware"
	"github.com/groupreg/backend/internal/services"
	"github.com/groupreg/backend/internal/storage"
	"github.com/groupreg/backend/pkg/logger"
	"github.com/groupreg/backend/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	var storageClient *storage.MinIOClient
	if cfg.Audit.ExportEnabled {
		storageClient, err = storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			log.Fatalf("minio initialization failed: %v", err)
		}
		if err := storageClient.EnsureBucket(context.Background()); err != nil {
			log.Fatalf("failed ensuring minio bucket: %v", err)
		}
	}

	groupService := services.NewGroupService(db)
	auditService := services.NewAuditService(db, storageClient)
	auditService.StartExportLoop(cfg.Audit.ExportInterval)

	authHandler := handlers.NewAuthHandler(db)
	usersHandler := handlers.NewUsersHandler(db)
	groupsHandler := handlers.NewGroupsHandler(groupService, auditService)
	groupUsersHandler := handlers.NewGroupUsersHandler(groupService, auditService)
	auditHandler := handlers.NewAuditHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New()
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	api.Get("/users/search", authMiddleware.RequireAuth, usersHandler.Search)

	userRoutes := api.Group("/users", authMiddleware.RequireAuth)
	userRoutes.Get("/", middleware.AdminOnly, usersHandler.List)
	userRoutes.Get("/:id", usersHandler.Get)

	groupRoutes := api.Group("/groups", authMiddleware.RequireAuth)
	groupRoutes.Post("/", groupsHandler.Create)
	groupRoutes.Get("/", groupsHandler.List)
	groupRoutes.Get("/:id", groupsHandler.Get)
	groupRoutes.Put("/:id", groupsHandler.Update)
	groupRoutes.Post("/:id/members", groupUsersHandler.Apply)
	groupRoutes.Get("/:id/members/:userId", groupUsersHandler.Get)
	groupRoutes.Put("/:id/members/:userId", groupUsersHandler.UpdateRole)
	groupRoutes.Delete("/:id/members/:userId", groupUsersHandler.Destroy)
	groupRoutes.Get("/:id/members/:userId/validate", groupUsersHandler.Validate)

	api.Get("/audit-log/export", authMiddleware.RequireAuth, auditHandler.ExportMyLog)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":         cfg.Server.Port,
		"address":      listenAddr,
		"audit_export": cfg.Audit.ExportEnabled,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
