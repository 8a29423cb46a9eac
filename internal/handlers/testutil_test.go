package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/groupreg/backend/internal/middleware"
	"github.com/groupreg/backend/internal/models"
	"github.com/groupreg/backend/internal/services"
	"github.com/groupreg/backend/pkg/logger"
	"github.com/groupreg/backend/pkg/utils"
	"gorm.io/gorm"
)

var testEnvOnce sync.Once

type testEnv struct {
	App    *fiber.App
	DB     *gorm.DB
	Groups *services.GroupService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testEnvOnce.Do(func() {
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupUser{},
		&models.AuditLog{},
		&models.AuditExportCursor{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	groupService := services.NewGroupService(db)
	auditService := services.NewAuditService(db, nil)

	authHandler := NewAuthHandler(db)
	usersHandler := NewUsersHandler(db)
	groupsHandler := NewGroupsHandler(groupService, auditService)
	groupUsersHandler := NewGroupUsersHandler(groupService, auditService)
	auditHandler := NewAuditHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New()
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	users := api.Group("/users", authMiddleware.RequireAuth)
	users.Get("/", middleware.AdminOnly, usersHandler.List)
	users.Get("/search", usersHandler.Search)
	users.Get("/:id", usersHandler.Get)

	groups := api.Group("/groups", authMiddleware.RequireAuth)
	groups.Post("/", groupsHandler.Create)
	groups.Get("/", groupsHandler.List)
	groups.Get("/:id", groupsHandler.Get)
	groups.Put("/:id", groupsHandler.Update)
	groups.Post("/:id/members", groupUsersHandler.Apply)
	groups.Get("/:id/members/:userId", groupUsersHandler.Get)
	groups.Put("/:id/members/:userId", groupUsersHandler.UpdateRole)
	groups.Delete("/:id/members/:userId", groupUsersHandler.Destroy)
	groups.Get("/:id/members/:userId/validate", groupUsersHandler.Validate)

	api.Get("/audit-log/export", authMiddleware.RequireAuth, auditHandler.ExportMyLog)

	return &testEnv{App: app, DB: db, Groups: groupService}
}

type testAccount struct {
	User  models.User
	Token string
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) testAccount {
	t.Helper()

	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "Account",
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed creating user %s: %v", email, err)
	}

	token, err := utils.GenerateToken(&user)
	if err != nil {
		t.Fatalf("failed generating token for %s: %v", email, err)
	}

	return testAccount{User: user, Token: token}
}

func performRequest(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed marshaling request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed decoding response body: %v", err)
	}
	return out
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d", want, resp.StatusCode)
	}
}

func dataMap(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()

	data, ok := body["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected data object in response, got %v", body["data"])
	}
	return data
}

func groupPath(t *testing.T, body map[string]interface{}) string {
	t.Helper()

	id, ok := dataMap(t, body)["id"].(float64)
	if !ok {
		t.Fatalf("expected numeric group id in response")
	}
	return fmt.Sprintf("/api/groups/%d", uint32(id))
}
