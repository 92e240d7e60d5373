package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fm-yodai/flash-vote/internal/auth"
	"github.com/fm-yodai/flash-vote/internal/metrics"
	"github.com/fm-yodai/flash-vote/internal/models"
)

// RoomService 封装房间的创建、更新与发布状态机。
type RoomService struct {
	db        *gorm.DB
	authority *auth.Authority
	audit     *AuditService
}

func NewRoomService(db *gorm.DB, authority *auth.Authority, audit *AuditService) *RoomService {
	return &RoomService{db: db, authority: authority, audit: audit}
}

// CreateResult 创建房间的返回数据。Token 是明文凭证，
// 仅在这里出现一次，之后任何接口都无法再取回。
type CreateResult struct {
	Room  models.Room
	Token string
}

// Create 签发主持人凭证并插入 draft 状态的房间。
func (s *RoomService) Create(title, purposeText *string) (*CreateResult, error) {
	token, digest, err := s.authority.Issue()
	if err != nil {
		return nil, err
	}
	room := models.Room{
		ID:            uuid.New(),
		Title:         title,
		PurposeText:   purposeText,
		Status:        models.RoomStatusDraft,
		HostTokenHash: digest,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		return s.audit.Record(tx, room.ID, models.AuditActorHost, ActionRoomCreated, nil)
	})
	if err != nil {
		return nil, err
	}
	return &CreateResult{Room: room, Token: token}, nil
}

// Update 部分更新标题与说明，未提供的字段保持原值。
func (s *RoomService) Update(room *models.Room, title, purposeText *string) error {
	updates := map[string]interface{}{}
	if title != nil {
		updates["title"] = *title
	}
	if purposeText != nil {
		updates["purpose_text"] = *purposeText
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(room).Updates(updates).Error; err != nil {
				return err
			}
		}
		return s.audit.Record(tx, room.ID, models.AuditActorHost, ActionRoomUpdated, nil)
	})
}

// Publish 执行 draft→published 迁移。前置条件通过条件 UPDATE 验证
// （状态列上的乐观 compare-and-set）：并发的两次 publish 最多一次成功，
// 另一次拿到 Conflict。
func (s *RoomService) Publish(room *models.Room) error {
	now := time.Now()
	err := s.transition(room, models.RoomStatusDraft,
		map[string]interface{}{"status": models.RoomStatusPublished, "published_at": &now},
		ActionRoomPublished)
	if err == nil {
		metrics.RoomsPublishedTotal.Inc()
	}
	return err
}

// Unpublish 执行 published→draft 迁移并清除 published_at。
func (s *RoomService) Unpublish(room *models.Room) error {
	return s.transition(room, models.RoomStatusPublished,
		map[string]interface{}{"status": models.RoomStatusDraft, "published_at": nil},
		ActionRoomUnpublished)
}

// transition 要求行的当前状态恰为 from，否则不更新任何行。
func (s *RoomService) transition(room *models.Room, from string, updates map[string]interface{}, action string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Room{}).
			Where("id = ? AND status = ?", room.ID, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 区分房间消失与状态不符。
			var count int64
			if err := tx.Model(&models.Room{}).Where("id = ?", room.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrRoomNotFound
			}
			return ErrConflict
		}
		if err := s.audit.Record(tx, room.ID, models.AuditActorHost, action, nil); err != nil {
			return err
		}
		return tx.First(room, "id = ?", room.ID).Error
	})
}

// GetRoom 按 id 加载房间，供访问控制使用。
func (s *RoomService) GetRoom(id uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := s.db.First(&room, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}
