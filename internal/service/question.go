package service

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fm-yodai/flash-vote/internal/models"
)

// QuestionService 管理问题及其选项的生命周期。
type QuestionService struct {
	db    *gorm.DB
	audit *AuditService
}

func NewQuestionService(db *gorm.DB, audit *AuditService) *QuestionService {
	return &QuestionService{db: db, audit: audit}
}

func validQuestionType(typ string) bool {
	switch typ {
	case models.QuestionTypeSingleChoice, models.QuestionTypeMultiChoice, models.QuestionTypeText:
		return true
	}
	return false
}

func isChoiceType(typ string) bool {
	return typ == models.QuestionTypeSingleChoice || typ == models.QuestionTypeMultiChoice
}

func validateOptionLabels(labels []string) *ValidationError {
	for _, l := range labels {
		if l == "" {
			return invalidField("options", "option label must not be empty")
		}
		if len(l) > 60 {
			return invalidField("options", "option label must be at most 60 characters")
		}
	}
	return nil
}

// Create 插入新问题。order 取房间内当前最大值加一（空房间视为 -1，
// 故第一题得到 0）；问题与选项在同一事务内写入，要么全部成功要么全部回滚。
func (s *QuestionService) Create(roomID uuid.UUID, typ, prompt string, optionLabels []string) (*models.Question, error) {
	if !validQuestionType(typ) {
		return nil, invalidField("type", "must be single_choice, multi_choice or text")
	}
	if prompt == "" {
		return nil, invalidField("prompt", "prompt is required")
	}
	if len(prompt) > 200 {
		return nil, invalidField("prompt", "prompt must be at most 200 characters")
	}
	if typ == models.QuestionTypeText && len(optionLabels) > 0 {
		return nil, invalidField("options", "text questions must not carry options")
	}
	if isChoiceType(typ) && len(optionLabels) == 0 {
		return nil, invalidField("options", "choice questions need at least one option")
	}
	if verr := validateOptionLabels(optionLabels); verr != nil {
		return nil, verr
	}

	question := models.Question{
		ID:     uuid.New(),
		RoomID: roomID,
		Type:   typ,
		Prompt: prompt,
		Status: models.QuestionStatusNotOpen,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var maxOrder int
		if err := tx.Model(&models.Question{}).
			Select(`COALESCE(MAX("order"), -1)`).
			Where("room_id = ?", roomID).
			Scan(&maxOrder).Error; err != nil {
			return err
		}
		question.Order = maxOrder + 1
		if err := tx.Create(&question).Error; err != nil {
			return err
		}
		if err := insertOptions(tx, question.ID, optionLabels); err != nil {
			return err
		}
		return s.audit.Record(tx, roomID, models.AuditActorHost, ActionQuestionCreated,
			map[string]interface{}{"question_id": question.ID.String()})
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

// Update 部分更新问题。options 一旦提供即整体替换（先全删再按列表顺序重插），
// 不做差量合并；全部修改都在一个事务里。
func (s *QuestionService) Update(question *models.Question, prompt *string, order *int, optionLabels []string, optionsSet bool) error {
	if prompt != nil {
		if *prompt == "" {
			return invalidField("prompt", "prompt is required")
		}
		if len(*prompt) > 200 {
			return invalidField("prompt", "prompt must be at most 200 characters")
		}
	}
	if optionsSet {
		if question.Type == models.QuestionTypeText && len(optionLabels) > 0 {
			return invalidField("options", "text questions must not carry options")
		}
		if verr := validateOptionLabels(optionLabels); verr != nil {
			return verr
		}
	}

	updates := map[string]interface{}{}
	if prompt != nil {
		updates["prompt"] = *prompt
	}
	if order != nil {
		updates["order"] = *order
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(question).Updates(updates).Error; err != nil {
				return err
			}
		}
		if optionsSet {
			if err := tx.Where("question_id = ?", question.ID).Delete(&models.Option{}).Error; err != nil {
				return err
			}
			if err := insertOptions(tx, question.ID, optionLabels); err != nil {
				return err
			}
		}
		return s.audit.Record(tx, question.RoomID, models.AuditActorHost, ActionQuestionUpdated,
			map[string]interface{}{"question_id": question.ID.String()})
	})
}

// Delete 删除问题，选项与作答由外键级联清理。
func (s *QuestionService) Delete(question *models.Question) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Question{}, "id = ?", question.ID).Error; err != nil {
			return err
		}
		return s.audit.Record(tx, question.RoomID, models.AuditActorHost, ActionQuestionDeleted,
			map[string]interface{}{"question_id": question.ID.String()})
	})
}

// insertOptions 按列表位置写入 order。
func insertOptions(tx *gorm.DB, questionID uuid.UUID, labels []string) error {
	for i, label := range labels {
		opt := models.Option{
			ID:         uuid.New(),
			QuestionID: questionID,
			Label:      label,
			Order:      i,
		}
		if err := tx.Create(&opt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Options 返回问题的选项，按 order 升序。
func (s *QuestionService) Options(questionID uuid.UUID) ([]models.Option, error) {
	var opts []models.Option
	err := s.db.Where("question_id = ?", questionID).Order(`"order" asc`).Find(&opts).Error
	return opts, err
}

// GetQuestion 按 id 加载问题，供访问控制解析所属房间。
func (s *QuestionService) GetQuestion(id uuid.UUID) (*models.Question, error) {
	var question models.Question
	if err := s.db.First(&question, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	return &question, nil
}
