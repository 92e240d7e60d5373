package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/fm-yodai/flash-vote/internal/auth"
	"github.com/fm-yodai/flash-vote/internal/config"
	"github.com/fm-yodai/flash-vote/internal/metrics"
	"github.com/fm-yodai/flash-vote/internal/mw"
	"github.com/fm-yodai/flash-vote/internal/service"
	"github.com/fm-yodai/flash-vote/internal/ws"
)

// SetupRouter 统一初始化中间件与全部 REST / WebSocket 端点。
func SetupRouter(cfg config.Config, gdb *gorm.DB, authority *auth.Authority, hub *ws.Hub) *gin.Engine {
	audit := service.NewAuditService()
	rooms := service.NewRoomService(gdb, authority, audit)
	questions := service.NewQuestionService(gdb, audit)
	var presence service.Presence
	if hub != nil {
		presence = hub
	}
	views := service.NewViewService(gdb, presence, time.Duration(cfg.PresenceWindowSeconds)*time.Second)
	participants := service.NewParticipantService(gdb)
	responses := service.NewResponseService(gdb)
	h := NewHandler(cfg, rooms, questions, views, participants, responses)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(mw.RequestID())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env, cfg.WebBaseURL))
	// 来宾端点匿名可达，整站限速保底。
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/api/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	host := r.Group("/api/host")
	host.POST("/rooms", h.CreateRoom)

	hostRoom := host.Group("/rooms/:id")
	hostRoom.Use(HostRoomMiddleware(rooms, authority))
	hostRoom.GET("", h.GetHostRoom)
	hostRoom.PATCH("", h.UpdateRoom)
	hostRoom.POST("/publish", h.PublishRoom)
	hostRoom.POST("/unpublish", h.UnpublishRoom)
	hostRoom.POST("/questions", h.CreateQuestion)

	hostQuestion := host.Group("/questions/:id")
	hostQuestion.Use(HostQuestionMiddleware(rooms, questions, authority))
	hostQuestion.PATCH("", h.UpdateQuestion)
	hostQuestion.DELETE("", h.DeleteQuestion)

	guest := r.Group("/api/rooms/:id")
	guest.GET("/ws", ws.Serve(hub, rooms, participants))
	guest.Use(PublicRoomMiddleware(rooms))
	guest.GET("", h.GetPublicRoom)
	guest.POST("/participants", h.JoinRoom)
	guest.POST("/participants/:pid/heartbeat", h.Heartbeat)
	guest.POST("/questions/:qid/responses", h.SubmitResponse)

	return r
}
