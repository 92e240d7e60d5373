package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Room 状态机：draft ⇄ published，live/ended 预留给放映流程。
const (
	RoomStatusDraft     = "draft"
	RoomStatusPublished = "published"
	RoomStatusLive      = "live"
	RoomStatusEnded     = "ended"
)

const (
	QuestionTypeSingleChoice = "single_choice"
	QuestionTypeMultiChoice  = "multi_choice"
	QuestionTypeText         = "text"
)

const (
	QuestionStatusNotOpen        = "not_open"
	QuestionStatusAccepting      = "accepting"
	QuestionStatusClosed         = "closed"
	QuestionStatusShowingResults = "showing_results"
)

const (
	ResponseTypeChoice = "choice"
	ResponseTypeText   = "text"
)

const (
	AuditActorHost   = "host"
	AuditActorSystem = "system"
)

// Room 是聚合根，其余实体都级联挂在它下面。
type Room struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title                *string   `gorm:"size:100"`
	PurposeText          *string   `gorm:"type:text"`
	Status               string    `gorm:"size:20;not null;default:'draft'"`
	HostTokenHash        string    `gorm:"size:64;not null" json:"-"`
	PublishedAt          *time.Time
	EndedAt              *time.Time
	CurrentQuestionIndex int `gorm:"not null;default:0"`
	CreatedAt            time.Time
	UpdatedAt            time.Time

	Questions    []Question      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Participants []Participant   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Responses    []Response      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	AuditLogs    []AuditLogEntry `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Question struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uniq_questions_room_order,priority:1"`
	Order     int       `gorm:"column:order;not null;uniqueIndex:uniq_questions_room_order,priority:2"`
	Type      string    `gorm:"size:20;not null"`
	Prompt    string    `gorm:"size:200;not null"`
	Status    string    `gorm:"size:20;not null;default:'not_open'"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Options   []Option   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Responses []Response `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Option struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	QuestionID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uniq_options_question_order,priority:1"`
	Label      string    `gorm:"size:60;not null"`
	Order      int       `gorm:"column:order;not null;default:0;uniqueIndex:uniq_options_question_order,priority:2"`
	CreatedAt  time.Time
}

// Participant 的 participant_id 由客户端生成，每个房间内唯一。
type Participant struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID        uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uniq_participants_room_pid,priority:1"`
	ParticipantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_participants_room_pid,priority:2"`
	CreatedAt     time.Time
	LastSeenAt    time.Time `gorm:"not null"`
}

// Response 每个参与者对每道题最多一条，由复合唯一索引兜底。
type Response struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	RoomID          uuid.UUID      `gorm:"type:uuid;not null;index:idx_responses_room_question,priority:1"`
	QuestionID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_responses_room_question,priority:2;uniqueIndex:uniq_responses_participant_question,priority:2"`
	ParticipantID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uniq_responses_participant_question,priority:1"`
	Type            string         `gorm:"size:10;not null"`
	ChoiceOptionIDs datatypes.JSON `gorm:"type:jsonb"`
	TextAnswer      *string        `gorm:"type:text"`
	CreatedAt       time.Time
}

// AuditLogEntry 只追加，除房间级联删除外永不修改。
type AuditLogEntry struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	RoomID    uuid.UUID         `gorm:"type:uuid;not null;index"`
	Actor     string            `gorm:"size:10;not null"`
	Action    string            `gorm:"size:64;not null"`
	Meta      datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (AuditLogEntry) TableName() string { return "audit_logs" }
