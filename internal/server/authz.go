package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fm-yodai/flash-vote/internal/auth"
	"github.com/fm-yodai/flash-vote/internal/models"
	"github.com/fm-yodai/flash-vote/internal/service"
)

const (
	ctxRoomKey     = "authz_room"
	ctxQuestionKey = "authz_question"
)

// HostRoomMiddleware 把 :id 指向的房间和 bearer 凭证解析成已授权的房间句柄。
// 顺序固定：先查房间（404），再取凭证（401），最后做摘要校验（401）。
// 成功后把房间快照放进上下文，后续 handler 不需要二次读取。
func HostRoomMiddleware(rooms *service.RoomService, authority *auth.Authority) gin.HandlerFunc {
	return func(c *gin.Context) {
		room, ok := resolveRoom(c, rooms, c.Param("id"))
		if !ok {
			return
		}
		if !verifyHost(c, authority, room) {
			return
		}
		c.Set(ctxRoomKey, room)
		c.Next()
	}
}

// HostQuestionMiddleware 先按 :id 加载问题，再解析其所属房间并复用房间授权。
// 成功后房间与问题快照都进上下文。
func HostQuestionMiddleware(rooms *service.RoomService, questions *service.QuestionService, authority *auth.Authority) gin.HandlerFunc {
	return func(c *gin.Context) {
		questionID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			abortError(c, http.StatusBadRequest, CodeValidation, "invalid question id",
				map[string]interface{}{"id": "must be a uuid"})
			return
		}
		question, err := questions.GetQuestion(questionID)
		if err != nil {
			serviceError(c, err, "authz load question")
			return
		}
		room, err := rooms.GetRoom(question.RoomID)
		if err != nil {
			serviceError(c, err, "authz load parent room")
			return
		}
		if !verifyHost(c, authority, room) {
			return
		}
		c.Set(ctxRoomKey, room)
		c.Set(ctxQuestionKey, question)
		c.Next()
	}
}

// PublicRoomMiddleware 加载来宾路由的房间，不做凭证校验。
func PublicRoomMiddleware(rooms *service.RoomService) gin.HandlerFunc {
	return func(c *gin.Context) {
		room, ok := resolveRoom(c, rooms, c.Param("id"))
		if !ok {
			return
		}
		c.Set(ctxRoomKey, room)
		c.Next()
	}
}

func resolveRoom(c *gin.Context, rooms *service.RoomService, rawID string) (*models.Room, bool) {
	roomID, err := uuid.Parse(rawID)
	if err != nil {
		abortError(c, http.StatusBadRequest, CodeValidation, "invalid room id",
			map[string]interface{}{"id": "must be a uuid"})
		return nil, false
	}
	room, err := rooms.GetRoom(roomID)
	if err != nil {
		serviceError(c, err, "authz load room")
		return nil, false
	}
	return room, true
}

// verifyHost 做 bearer 提取与常数时间摘要比对。两种失败对外同样是
// UNAUTHORIZED，不泄露是哪一步出的问题。
func verifyHost(c *gin.Context, authority *auth.Authority, room *models.Room) bool {
	token, ok := auth.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		abortError(c, http.StatusUnauthorized, CodeUnauthorized, "missing or invalid credential", nil)
		return false
	}
	if !authority.Verify(token, room.HostTokenHash) {
		abortError(c, http.StatusUnauthorized, CodeUnauthorized, "missing or invalid credential", nil)
		return false
	}
	return true
}

// ContextRoom 取出授权中间件放入的房间快照。
func ContextRoom(c *gin.Context) *models.Room {
	if v, ok := c.Get(ctxRoomKey); ok {
		if room, ok2 := v.(*models.Room); ok2 {
			return room
		}
	}
	return nil
}

// ContextQuestion 取出授权中间件放入的问题快照。
func ContextQuestion(c *gin.Context) *models.Question {
	if v, ok := c.Get(ctxQuestionKey); ok {
		if q, ok2 := v.(*models.Question); ok2 {
			return q
		}
	}
	return nil
}
