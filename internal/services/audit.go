package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/groupreg/backend/internal/models"
	"github.com/groupreg/backend/internal/storage"
	"github.com/groupreg/backend/pkg/logger"
	"gorm.io/gorm"
)

type AuditEntry struct {
	UserID       *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   string
	Details      map[string]interface{}
	IPAddress    string
}

// AuditService records every registry mutation off the request path. Writes
// go through a buffered queue drained by a single worker; a full queue drops
// the entry rather than stalling the caller.
type AuditService struct {
	DB      *gorm.DB
	Storage *storage.MinIOClient
	queue   chan models.AuditLog
}

func NewAuditService(db *gorm.DB, storageClient *storage.MinIOClient) *AuditService {
	s := &AuditService{
		DB:      db,
		Storage: storageClient,
		queue:   make(chan models.AuditLog, 1000),
	}
	go s.processQueue()
	return s
}

func (s *AuditService) LogAsync(entry AuditEntry) {
	row := models.AuditLog{
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Details:      entry.Details,
		IPAddress:    entry.IPAddress,
		CreatedAt:    time.Now().UTC(),
	}

	select {
	case s.queue <- row:
	default:
		logger.Warn("audit_queue_full", map[string]interface{}{
			"action":  entry.Action,
			"dropped": true,
		})
	}
}

func (s *AuditService) processQueue() {
	for row := range s.queue {
		if err := s.DB.Create(&row).Error; err != nil {
			logger.Error("audit_log_insert_failed", err, map[string]interface{}{
				"action": row.Action,
			})
		}
	}
}

// Export ships audit rows newer than the cursor to object storage as a JSON
// batch and advances the cursor. It is a no-op without a storage client or
// when nothing new exists.
func (s *AuditService) Export(ctx context.Context) error {
	if s.Storage == nil {
		return nil
	}

	var cursor models.AuditExportCursor
	err := s.DB.First(&cursor).Error
	if err == gorm.ErrRecordNotFound {
		cursor = models.AuditExportCursor{LastExportAt: time.Time{}}
		if err := s.DB.Create(&cursor).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	var logs []models.AuditLog
	if err := s.DB.Where("created_at > ?", cursor.LastExportAt).
		Order("created_at ASC").
		Find(&logs).Error; err != nil {
		return err
	}
	if len(logs) == 0 {
		return nil
	}

	payload, err := json.Marshal(logs)
	if err != nil {
		return err
	}

	objectName := fmt.Sprintf("audit/%s.json", time.Now().UTC().Format("20060102T150405Z"))
	if err := s.Storage.Upload(ctx, objectName, payload, "application/json"); err != nil {
		return err
	}

	cursor.LastExportAt = logs[len(logs)-1].CreatedAt
	cursor.ExportedCount += int64(len(logs))
	if err := s.DB.Save(&cursor).Error; err != nil {
		return err
	}

	logger.Info("audit_export_complete", map[string]interface{}{
		"object_name": objectName,
		"exported":    len(logs),
	})
	return nil
}

func (s *AuditService) StartExportLoop(interval time.Duration) {
	if s.Storage == nil || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if err := s.Export(context.Background()); err != nil {
				logger.Error("audit_export_failed", err, nil)
			}
		}
	}()
}
