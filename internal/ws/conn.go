package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fm-yodai/flash-vote/internal/models"
	"github.com/fm-yodai/flash-vote/internal/service"
)

type Client struct {
	room          *RoomHub
	conn          *websocket.Conn
	send          chan []byte
	participants  *service.ParticipantService
	participantID uuid.UUID
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve 处理来宾的存活连接：登记在线状态，任何入站帧都视作心跳并
// 刷新参与者的 last_seen_at。来宾必须先通过 join 接口注册。
func Serve(h *Hub, rooms *service.RoomService, participants *service.ParticipantService) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
			return
		}
		participantID, err := uuid.Parse(c.Query("participant"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participant id"})
			return
		}
		room, err := rooms.GetRoom(roomID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		if room.Status == models.RoomStatusDraft {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		// 未 join 的参与者不得上线；合法连接顺带刷新一次 last_seen_at
		if err := participants.Heartbeat(roomID, participantID); err != nil {
			if errors.Is(err, service.ErrParticipantNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "participant not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		rh := h.GetRoom(roomID)
		client := &Client{
			room:          rh,
			conn:          conn,
			send:          make(chan []byte, 64),
			participants:  participants,
			participantID: participantID,
		}
		rh.register <- client

		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.room.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(4 << 10)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
		// 客户端发来的任何帧都当作心跳；参与者记录消失则断开
		if err := c.participants.Heartbeat(c.room.roomID, c.participantID); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
