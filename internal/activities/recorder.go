package activities

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hugh/go-crm/internal/database/models"
	"github.com/hugh/go-crm/internal/domain"
	"gorm.io/gorm"
)

// The Record* helpers are called with the mutating transaction so the entry
// commits or rolls back together with the change it describes.

func RecordStatusChanged(tx *gorm.DB, dealID, authorID uuid.UUID, from, to domain.DealStatus) (*models.Activity, error) {
	return record(tx, dealID, &authorID, domain.ActivityStatusChanged, map[string]any{
		"old_status": string(from),
		"new_status": string(to),
	})
}

func RecordStageChanged(tx *gorm.DB, dealID, authorID uuid.UUID, from, to domain.DealStage) (*models.Activity, error) {
	return record(tx, dealID, &authorID, domain.ActivityStageChanged, map[string]any{
		"old_stage": string(from),
		"new_stage": string(to),
	})
}

func RecordTaskCreated(tx *gorm.DB, task *models.Task, authorID uuid.UUID) (*models.Activity, error) {
	return record(tx, task.DealID, &authorID, domain.ActivityTaskCreated, map[string]any{
		"task_id":    task.ID.String(),
		"task_title": task.Title,
	})
}

func record(tx *gorm.DB, dealID uuid.UUID, authorID *uuid.UUID, kind domain.ActivityType, payload map[string]any) (*models.Activity, error) {
	activity := models.Activity{
		DealID:   dealID,
		AuthorID: authorID,
		Type:     kind,
		Payload:  payload,
	}
	if err := tx.Create(&activity).Error; err != nil {
		return nil, fmt.Errorf("recording %s activity: %w", kind, err)
	}
	return &activity, nil
}
