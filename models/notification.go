package models

import (
	"context"
	"time"

	"bitbucket.org/paradixe/oit_backend/config"
	"bitbucket.org/paradixe/oit_backend/utils"
)

type Notification struct {
	ID            int       `gorm:"primary_key" json:"id"`
	UserId        int       `gorm:"index;not null" json:"user_id"`
	OitDocumentId int       `gorm:"index" json:"oit_document_id"`
	EventType     string    `gorm:"size:50" json:"event_type"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Body          string    `gorm:"type:text" json:"body"`
	Read          *bool     `gorm:"not null;default:false" json:"read"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// CreateNotification writes the row and fires a best-effort event
// publish. Publish failures are logged only.
func CreateNotification(ctx context.Context, userID int, documentID int, eventType, title, body string) (*Notification, error) {
	notification := Notification{
		UserId:        userID,
		OitDocumentId: documentID,
		EventType:     eventType,
		Title:         title,
		Body:          body,
		Read:          utils.NewFalse(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	if _, err := config.PublishNotificationEvent(config.NotificationEvent{
		DocumentId:    documentID,
		UserId:        userID,
		EventType:     eventType,
		Title:         title,
		Body:          body,
		OccurredAt:    notification.CreatedAt,
		CorrelationId: correlationId,
	}); err != nil {
		config.LogError(config.GetLogger(), "models", "CreateNotification", "publishing notification event", notification.ID, err)
	}

	return &notification, nil
}

func ListNotifications(ctx context.Context, userID int, unreadOnly bool) ([]*Notification, error) {
	db := config.GetDB()
	var results []*Notification

	dbCtx := db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		dbCtx = dbCtx.Where("`read` = ?", false)
	}
	err := dbCtx.Order("created_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func MarkNotificationRead(ctx context.Context, userID int, id int) (*Notification, error) {
	db := config.GetDB()
	var notification Notification
	if err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&notification).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if err := db.WithContext(ctx).Model(&notification).Update("Read", utils.NewTrue()).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}
