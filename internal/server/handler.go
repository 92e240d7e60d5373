package server

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fm-yodai/flash-vote/internal/config"
	"github.com/fm-yodai/flash-vote/internal/models"
	"github.com/fm-yodai/flash-vote/internal/service"
)

// Handler 聚合所有 HTTP handler，依赖注入 service 层。
type Handler struct {
	cfg          config.Config
	rooms        *service.RoomService
	questions    *service.QuestionService
	views        *service.ViewService
	participants *service.ParticipantService
	responses    *service.ResponseService
}

func NewHandler(cfg config.Config, rooms *service.RoomService, questions *service.QuestionService, views *service.ViewService, participants *service.ParticipantService, responses *service.ResponseService) *Handler {
	return &Handler{
		cfg:          cfg,
		rooms:        rooms,
		questions:    questions,
		views:        views,
		participants: participants,
		responses:    responses,
	}
}

// Health 健康检查。
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type roomBody struct {
	Title       *string `json:"title"`
	PurposeText *string `json:"purposeText"`
}

func (b *roomBody) validate() map[string]interface{} {
	if b.Title != nil && len(*b.Title) > 100 {
		return map[string]interface{}{"title": "must be at most 100 characters"}
	}
	return nil
}

// CreateRoom 创建房间并返回明文凭证。凭证只在这个响应里出现一次，
// 之后任何读取接口都无法再取回。
func (h *Handler) CreateRoom(c *gin.Context) {
	var req roomBody
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, CodeValidation, "invalid JSON body", nil)
		return
	}
	if details := req.validate(); details != nil {
		abortError(c, http.StatusBadRequest, CodeValidation, "invalid request body", details)
		return
	}
	result, err := h.rooms.Create(req.Title, req.PurposeText)
	if err != nil {
		serviceError(c, err, "create room")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"room":              gin.H{"id": result.Room.ID, "status": result.Room.Status},
		"hostToken":         result.Token,
		"hostManagementUrl": h.hostManagementURL(result.Room.ID, result.Token),
		"publicUrl":         h.publicURL(result.Room.ID),
	})
}

func (h *Handler) hostManagementURL(roomID uuid.UUID, token string) string {
	u, err := url.Parse(h.cfg.WebBaseURL)
	if err != nil {
		return ""
	}
	u.Path = "/host/" + roomID.String()
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func (h *Handler) publicURL(roomID uuid.UUID) string {
	u, err := url.Parse(h.cfg.WebBaseURL)
	if err != nil {
		return ""
	}
	u.Path = "/r/" + roomID.String()
	return u.String()
}

// GetHostRoom 返回主持人视图：房间属性、有序问题与选项、来宾计数。
func (h *Handler) GetHostRoom(c *gin.Context) {
	view, err := h.views.HostView(ContextRoom(c))
	if err != nil {
		serviceError(c, err, "host view")
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateRoom 部分更新房间标题与说明。
func (h *Handler) UpdateRoom(c *gin.Context) {
	var req roomBody
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, CodeValidation, "invalid JSON body", nil)
		return
	}
	if details := req.validate(); details != nil {
		abortError(c, http.StatusBadRequest, CodeValidation, "invalid request body", details)
		return
	}
	room := ContextRoom(c)
	if err := h.rooms.Update(room, req.Title, req.PurposeText); err != nil {
		serviceError(c, err, "update room")
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": gin.H{"id": room.ID, "status": room.Status}})
}

// PublishRoom 执行 draft→published。非 draft 状态返回 Conflict。
func (h *Handler) PublishRoom(c *gin.Context) {
	room := ContextRoom(c)
	if err := h.rooms.Publish(room); err != nil {
		serviceError(c, err, "publish room")
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": gin.H{"id": room.ID, "status": room.Status}})
}

// UnpublishRoom 执行 published→draft。非 published 状态返回 Conflict。
func (h *Handler) UnpublishRoom(c *gin.Context) {
	room := ContextRoom(c)
	if err := h.rooms.Unpublish(room); err != nil {
		serviceError(c, err, "unpublish room")
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": gin.H{"id": room.ID, "status": room.Status}})
}

type createQuestionBody struct {
	Type    string   `json:"type"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// CreateQuestion 在房间内追加问题，order 自动取当前最大值加一。
func (h *Handler) CreateQuestion(c *gin.Context) {
	var req createQuestionBody
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, CodeValidation, "invalid JSON body", nil)
		return
	}
	room := ContextRoom(c)
	question, err := h.questions.Create(room.ID, req.Type, req.Prompt, req.Options)
	if err != nil {
		serviceError(c, err, "create question")
		return
	}
	body, err := h.questionResponse(question)
	if err != nil {
		serviceError(c, err, "load question options")
		return
	}
	c.JSON(http.StatusCreated, body)
}

type updateQuestionBody struct {
	Prompt *string `json:"prompt"`
	Order  *int    `json:"order"`
	// 指针区分"未提供"与"空列表"：提供即整体替换现有选项
	Options *[]string `json:"options"`
}

// UpdateQuestion 部分更新问题；options 一旦提供即破坏性整体替换。
func (h *Handler) UpdateQuestion(c *gin.Context) {
	var req updateQuestionBody
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, CodeValidation, "invalid JSON body", nil)
		return
	}
	question := ContextQuestion(c)
	var labels []string
	if req.Options != nil {
		labels = *req.Options
	}
	if err := h.questions.Update(question, req.Prompt, req.Order, labels, req.Options != nil); err != nil {
		serviceError(c, err, "update question")
		return
	}
	fresh, err := h.questions.GetQuestion(question.ID)
	if err != nil {
		serviceError(c, err, "reload question")
		return
	}
	body, err := h.questionResponse(fresh)
	if err != nil {
		serviceError(c, err, "load question options")
		return
	}
	c.JSON(http.StatusOK, body)
}

// DeleteQuestion 删除问题，选项与作答级联清理。
func (h *Handler) DeleteQuestion(c *gin.Context) {
	if err := h.questions.Delete(ContextQuestion(c)); err != nil {
		serviceError(c, err, "delete question")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) questionResponse(q *models.Question) (gin.H, error) {
	opts, err := h.questions.Options(q.ID)
	if err != nil {
		return nil, err
	}
	options := make([]gin.H, 0, len(opts))
	for _, o := range opts {
		options = append(options, gin.H{"id": o.ID, "label": o.Label, "order": o.Order})
	}
	return gin.H{"question": gin.H{
		"id":      q.ID,
		"type":    q.Type,
		"prompt":  q.Prompt,
		"order":   q.Order,
		"status":  q.Status,
		"options": options,
	}}, nil
}

// GetPublicRoom 返回来宾可见的房间视图，仅限已发布的房间。
func (h *Handler) GetPublicRoom(c *gin.Context) {
	view, err := h.views.PublicView(ContextRoom(c))
	if err != nil {
		serviceError(c, err, "public view")
		return
	}
	c.JSON(http.StatusOK, view)
}

type joinBody struct {
	ParticipantID string `json:"participantId"`
}

// JoinRoom 登记来宾身份，重复加入幂等。
func (h *Handler) JoinRoom(c *gin.Context) {
	var req joinBody
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, CodeValidation, "invalid JSON body", nil)
		return
	}
	participantID, err := uuid.Parse(req.ParticipantID)
	if err != nil {
		abortError(c, http.StatusBadRequest, CodeValidation, "invalid request body",
			map[string]interface{}{"participantId": "must be a uuid"})
		return
	}
	p, err := h.participants.Join(ContextRoom(c), participantID)
	if err != nil {
		serviceError(c, err, "join room")
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant": gin.H{"id": p.ParticipantID, "lastSeenAt": p.LastSeenAt}})
}

// Heartbeat 刷新来宾的 last_seen_at。
func (h *Handler) Heartbeat(c *gin.Context) {
	participantID, err := uuid.Parse(c.Param("pid"))
	if err != nil {
		abortError(c, http.StatusBadRequest, CodeValidation, "invalid participant id",
			map[string]interface{}{"pid": "must be a uuid"})
		return
	}
	room := ContextRoom(c)
	if err := h.participants.Heartbeat(room.ID, participantID); err != nil {
		serviceError(c, err, "heartbeat")
		return
	}
	c.Status(http.StatusNoContent)
}

type responseBody struct {
	ParticipantID   string   `json:"participantId"`
	ChoiceOptionIDs []string `json:"choiceOptionIds"`
	TextAnswer      *string  `json:"textAnswer"`
}

// SubmitResponse 记录一条来宾作答；同一参与者对同一问题只能作答一次。
func (h *Handler) SubmitResponse(c *gin.Context) {
	var req responseBody
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, CodeValidation, "invalid JSON body", nil)
		return
	}
	participantID, err := uuid.Parse(req.ParticipantID)
	if err != nil {
		abortError(c, http.StatusBadRequest, CodeValidation, "invalid request body",
			map[string]interface{}{"participantId": "must be a uuid"})
		return
	}
	questionID, err := uuid.Parse(c.Param("qid"))
	if err != nil {
		abortError(c, http.StatusBadRequest, CodeValidation, "invalid question id",
			map[string]interface{}{"qid": "must be a uuid"})
		return
	}
	question, err := h.questions.GetQuestion(questionID)
	if err != nil {
		serviceError(c, err, "load question for response")
		return
	}
	choiceIDs := make([]uuid.UUID, 0, len(req.ChoiceOptionIDs))
	for _, raw := range req.ChoiceOptionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			abortError(c, http.StatusBadRequest, CodeValidation, "invalid request body",
				map[string]interface{}{"choiceOptionIds": "must be uuids"})
			return
		}
		choiceIDs = append(choiceIDs, id)
	}
	resp, err := h.responses.Submit(ContextRoom(c), question, participantID, choiceIDs, req.TextAnswer)
	if err != nil {
		serviceError(c, err, "submit response")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"response": gin.H{"id": resp.ID, "type": resp.Type}})
}
