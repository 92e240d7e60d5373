package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/fm-yodai/flash-vote/internal/metrics"
)

// Hub 管理房间级别的在线登记，实现延迟创建与并发安全。
// Online 是主持人视图里 active 来宾数的数据源。
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]*RoomHub
}

func NewHub() *Hub { return &Hub{rooms: make(map[uuid.UUID]*RoomHub)} }

// GetRoom 若房间未初始化则懒加载一个 RoomHub。
func (h *Hub) GetRoom(roomID uuid.UUID) *RoomHub {
	h.mu.RLock()
	room := h.rooms[roomID]
	h.mu.RUnlock()
	if room != nil {
		return room
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	room = h.rooms[roomID]
	if room != nil {
		return room
	}
	room = NewRoomHub(roomID)
	h.rooms[roomID] = room
	go room.run()
	return room
}

// Online 返回房间当前连接的来宾数，实现 service.Presence。
func (h *Hub) Online(roomID uuid.UUID) int {
	h.mu.RLock()
	room := h.rooms[roomID]
	h.mu.RUnlock()
	if room == nil {
		return 0
	}
	return room.Online()
}

type RoomHub struct {
	roomID     uuid.UUID
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	online     int32
}

func NewRoomHub(roomID uuid.UUID) *RoomHub {
	return &RoomHub{
		roomID:     roomID,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (rh *RoomHub) run() {
	for {
		select {
		case c := <-rh.register:
			rh.clients[c] = true
			atomic.StoreInt32(&rh.online, int32(len(rh.clients)))
			metrics.WsConnections.Inc()
			rh.notifyPresence()
		case c := <-rh.unregister:
			if _, ok := rh.clients[c]; ok {
				delete(rh.clients, c)
				close(c.send)
				atomic.StoreInt32(&rh.online, int32(len(rh.clients)))
				metrics.WsConnections.Dec()
				rh.notifyPresence()
			}
		}
	}
}

// notifyPresence 把最新在线人数推给房间里的所有连接。
func (rh *RoomHub) notifyPresence() {
	evt := map[string]interface{}{
		"type":    "presence",
		"room_id": rh.roomID.String(),
		"online":  int(atomic.LoadInt32(&rh.online)),
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return
	}
	for c := range rh.clients {
		select {
		case c.send <- b:
		default:
			close(c.send)
			delete(rh.clients, c)
			atomic.StoreInt32(&rh.online, int32(len(rh.clients)))
			metrics.WsConnections.Dec()
		}
	}
}

// Online 返回房间在线来宾数量，供 REST 接口复用。
func (rh *RoomHub) Online() int { return int(atomic.LoadInt32(&rh.online)) }
