package service

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fm-yodai/flash-vote/internal/metrics"
	"github.com/fm-yodai/flash-vote/internal/models"
)

// ParticipantService 处理来宾加入与心跳。participant_id 由客户端生成，
// 同一房间内重复加入是幂等的。
type ParticipantService struct {
	db *gorm.DB
}

func NewParticipantService(db *gorm.DB) *ParticipantService {
	return &ParticipantService{db: db}
}

// Join 在 (room_id, participant_id) 上做 upsert：已存在时只刷新 last_seen_at。
// 未发布的房间不接受来宾。
func (s *ParticipantService) Join(room *models.Room, participantID uuid.UUID) (*models.Participant, error) {
	if room.Status == models.RoomStatusDraft {
		return nil, ErrRoomNotPublished
	}
	now := time.Now()
	p := models.Participant{
		ID:            uuid.New(),
		RoomID:        room.ID,
		ParticipantID: participantID,
		LastSeenAt:    now,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "participant_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"last_seen_at": now}),
	}).Create(&p).Error
	if err != nil {
		return nil, err
	}
	var saved models.Participant
	if err := s.db.Where("room_id = ? AND participant_id = ?", room.ID, participantID).First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

// Heartbeat 刷新 last_seen_at，是 active 来宾数的存活信号。
func (s *ParticipantService) Heartbeat(roomID, participantID uuid.UUID) error {
	res := s.db.Model(&models.Participant{}).
		Where("room_id = ? AND participant_id = ?", roomID, participantID).
		Update("last_seen_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// ResponseService 处理来宾作答。
type ResponseService struct {
	db *gorm.DB
}

func NewResponseService(db *gorm.DB) *ResponseService {
	return &ResponseService{db: db}
}

// Submit 写入一条作答。类型标签必须与问题类型匹配（choice/text 互斥），
// 选项 id 必须属于该问题；(participant, question) 唯一性由索引兜底，
// 违反时映射为 Conflict。
func (s *ResponseService) Submit(room *models.Room, question *models.Question, participantID uuid.UUID, choiceOptionIDs []uuid.UUID, textAnswer *string) (*models.Response, error) {
	if room.Status == models.RoomStatusDraft {
		return nil, ErrRoomNotPublished
	}
	if question.RoomID != room.ID {
		return nil, ErrQuestionNotFound
	}

	resp := models.Response{
		ID:            uuid.New(),
		RoomID:        room.ID,
		QuestionID:    question.ID,
		ParticipantID: participantID,
	}
	switch {
	case isChoiceType(question.Type):
		if textAnswer != nil {
			return nil, invalidField("textAnswer", "choice questions take option ids, not text")
		}
		if len(choiceOptionIDs) == 0 {
			return nil, invalidField("choiceOptionIds", "at least one option id is required")
		}
		if question.Type == models.QuestionTypeSingleChoice && len(choiceOptionIDs) > 1 {
			return nil, invalidField("choiceOptionIds", "single_choice takes exactly one option id")
		}
		if err := s.checkOptionsBelong(question.ID, choiceOptionIDs); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(choiceOptionIDs)
		if err != nil {
			return nil, err
		}
		resp.Type = models.ResponseTypeChoice
		resp.ChoiceOptionIDs = datatypes.JSON(raw)
	default:
		if len(choiceOptionIDs) > 0 {
			return nil, invalidField("choiceOptionIds", "text questions take a text answer, not option ids")
		}
		if textAnswer == nil || *textAnswer == "" {
			return nil, invalidField("textAnswer", "text answer is required")
		}
		resp.Type = models.ResponseTypeText
		resp.TextAnswer = textAnswer
	}

	if err := s.db.Create(&resp).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateResponse
		}
		return nil, err
	}
	metrics.ResponsesTotal.Inc()
	return &resp, nil
}

func (s *ResponseService) checkOptionsBelong(questionID uuid.UUID, ids []uuid.UUID) error {
	var count int64
	if err := s.db.Model(&models.Option{}).
		Where("question_id = ? AND id IN ?", questionID, ids).
		Count(&count).Error; err != nil {
		return err
	}
	if int(count) != len(uniqueIDs(ids)) {
		return invalidField("choiceOptionIds", "option does not belong to this question")
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// isUniqueViolation 识别唯一索引冲突。gorm 在不同驱动下不统一，
// 同时匹配 gorm 的翻译错误与 postgres 的 23505 文案。
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
