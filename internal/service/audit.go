package service

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fm-yodai/flash-vote/internal/models"
)

// 审计动作名。每个变更操作恰好追加一条。
const (
	ActionRoomCreated     = "room_created"
	ActionRoomUpdated     = "room_updated"
	ActionRoomPublished   = "room_published"
	ActionRoomUnpublished = "room_unpublished"
	ActionQuestionCreated = "question_created"
	ActionQuestionUpdated = "question_updated"
	ActionQuestionDeleted = "question_deleted"
)

// AuditService 追加不可变的审计记录。Record 接收调用方的事务句柄：
// 审计行和它记录的变更同属一个原子单元，追加失败会把变更一起回滚。
type AuditService struct{}

func NewAuditService() *AuditService { return &AuditService{} }

func (s *AuditService) Record(tx *gorm.DB, roomID uuid.UUID, actor, action string, meta map[string]interface{}) error {
	entry := models.AuditLogEntry{
		ID:     uuid.New(),
		RoomID: roomID,
		Actor:  actor,
		Action: action,
	}
	if meta != nil {
		entry.Meta = datatypes.JSONMap(meta)
	}
	return tx.Create(&entry).Error
}
