package service

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fm-yodai/flash-vote/internal/models"
)

// Presence 提供房间当前在线人数，由 ws 包的 Hub 实现。
type Presence interface {
	Online(roomID uuid.UUID) int
}

// ViewService 组装面向主持人的房间视图。
type ViewService struct {
	db             *gorm.DB
	presence       Presence
	presenceWindow time.Duration
}

func NewViewService(db *gorm.DB, presence Presence, presenceWindow time.Duration) *ViewService {
	return &ViewService{db: db, presence: presence, presenceWindow: presenceWindow}
}

type OptionDTO struct {
	ID    uuid.UUID `json:"id"`
	Label string    `json:"label"`
	Order int       `json:"order"`
}

type QuestionDTO struct {
	ID      uuid.UUID   `json:"id"`
	Type    string      `json:"type"`
	Prompt  string      `json:"prompt"`
	Order   int         `json:"order"`
	Status  string      `json:"status"`
	Options []OptionDTO `json:"options"`
}

type GuestCountDTO struct {
	// Active 基于真实存活信号：优先取 ws 在线数，未接入 ws 时
	// 回退为 last_seen_at 在存活窗口内的参与者数。Total 是历史累计。
	Active int `json:"active"`
	Total  int `json:"total"`
}

type HostViewDTO struct {
	ID                   uuid.UUID     `json:"id"`
	Title                *string       `json:"title"`
	PurposeText          *string       `json:"purposeText"`
	Status               string        `json:"status"`
	PublishedAt          *time.Time    `json:"publishedAt"`
	EndedAt              *time.Time    `json:"endedAt"`
	CurrentQuestionIndex int           `json:"currentQuestionIndex"`
	CreatedAt            time.Time     `json:"createdAt"`
	Questions            []QuestionDTO `json:"questions"`
	GuestCount           GuestCountDTO `json:"guestCount"`
}

// HostView 返回房间属性、按 order 升序的问题及各自的选项，外加来宾计数。
// 选项按问题 id 集合一次性批量查询，查询次数不随问题数增长。
func (s *ViewService) HostView(room *models.Room) (*HostViewDTO, error) {
	questions, err := s.orderedQuestions(room.ID)
	if err != nil {
		return nil, err
	}
	count, err := s.guestCount(room.ID)
	if err != nil {
		return nil, err
	}
	return &HostViewDTO{
		ID:                   room.ID,
		Title:                room.Title,
		PurposeText:          room.PurposeText,
		Status:               room.Status,
		PublishedAt:          room.PublishedAt,
		EndedAt:              room.EndedAt,
		CurrentQuestionIndex: room.CurrentQuestionIndex,
		CreatedAt:            room.CreatedAt,
		Questions:            questions,
		GuestCount:           *count,
	}, nil
}

type PublicViewDTO struct {
	ID        uuid.UUID     `json:"id"`
	Title     *string       `json:"title"`
	Status    string        `json:"status"`
	Questions []QuestionDTO `json:"questions"`
}

// PublicView 是来宾可见的视图：不含凭证摘要与计数，仅限已发布的房间。
func (s *ViewService) PublicView(room *models.Room) (*PublicViewDTO, error) {
	if room.Status == models.RoomStatusDraft {
		return nil, ErrRoomNotPublished
	}
	questions, err := s.orderedQuestions(room.ID)
	if err != nil {
		return nil, err
	}
	return &PublicViewDTO{
		ID:        room.ID,
		Title:     room.Title,
		Status:    room.Status,
		Questions: questions,
	}, nil
}

func (s *ViewService) orderedQuestions(roomID uuid.UUID) ([]QuestionDTO, error) {
	var questions []models.Question
	if err := s.db.Where("room_id = ?", roomID).Order(`"order" asc`).Find(&questions).Error; err != nil {
		return nil, err
	}

	questionIDs := make([]uuid.UUID, 0, len(questions))
	for _, q := range questions {
		questionIDs = append(questionIDs, q.ID)
	}
	grouped := make(map[uuid.UUID][]OptionDTO, len(questions))
	if len(questionIDs) > 0 {
		var options []models.Option
		if err := s.db.Where("question_id IN ?", questionIDs).Order(`"order" asc`).Find(&options).Error; err != nil {
			return nil, err
		}
		for _, o := range options {
			grouped[o.QuestionID] = append(grouped[o.QuestionID], OptionDTO{ID: o.ID, Label: o.Label, Order: o.Order})
		}
	}

	out := make([]QuestionDTO, 0, len(questions))
	for _, q := range questions {
		opts := grouped[q.ID]
		if opts == nil {
			opts = []OptionDTO{}
		}
		out = append(out, QuestionDTO{
			ID:      q.ID,
			Type:    q.Type,
			Prompt:  q.Prompt,
			Order:   q.Order,
			Status:  q.Status,
			Options: opts,
		})
	}
	return out, nil
}

func (s *ViewService) guestCount(roomID uuid.UUID) (*GuestCountDTO, error) {
	var total int64
	if err := s.db.Model(&models.Participant{}).Where("room_id = ?", roomID).Count(&total).Error; err != nil {
		return nil, err
	}
	active := 0
	if s.presence != nil {
		active = s.presence.Online(roomID)
	} else {
		var n int64
		cutoff := time.Now().Add(-s.presenceWindow)
		if err := s.db.Model(&models.Participant{}).
			Where("room_id = ? AND last_seen_at > ?", roomID, cutoff).
			Count(&n).Error; err != nil {
			return nil, err
		}
		active = int(n)
	}
	return &GuestCountDTO{Active: active, Total: int(total)}, nil
}
