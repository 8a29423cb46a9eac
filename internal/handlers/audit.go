package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/groupreg/backend/internal/middleware"
	"github.com/groupreg/backend/internal/models"
	"github.com/groupreg/backend/pkg/utils"
	"gorm.io/gorm"
)

type AuditHandler struct {
	DB *gorm.DB
}

func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{DB: db}
}

// ExportMyLog streams the caller's own registry actions as CSV or JSON.
func (h *AuditHandler) ExportMyLog(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	format := strings.ToLower(strings.TrimSpace(c.Query("format", "csv")))
	if format != "csv" && format != "json" {
		return utils.Error(c, fiber.StatusBadRequest, "format must be csv or json")
	}

	var logs []models.AuditLog
	if err := h.DB.Where("user_id = ?", currentUser.ID).
		Order("created_at DESC").
		Limit(10000).
		Find(&logs).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading audit logs")
	}

	if format == "json" {
		c.Set("Content-Type", "application/json")
		c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "audit-log.json"))
		return c.JSON(fiber.Map{"success": true, "data": logs})
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "audit-log.csv"))

	writer := csv.NewWriter(c.Response().BodyWriter())
	_ = writer.Write([]string{"Timestamp", "Action", "Resource Type", "Resource ID", "IP Address", "Details"})

	for _, row := range logs {
		details := ""
		if row.Details != nil {
			if encoded, err := json.Marshal(row.Details); err == nil {
				details = string(encoded)
			}
		}
		_ = writer.Write([]string{
			row.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			row.Action,
			row.ResourceType,
			row.ResourceID,
			row.IPAddress,
			details,
		})
	}

	writer.Flush()
	return nil
}
