// cmd/alert-gateway/main.go
package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"stockgate/internal/pkg/bootstrap"
	"stockgate/internal/pkg/logger"
	"stockgate/internal/pkg/mq"
)

const serviceName = "alert-gateway"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { // 简化处理，允许所有跨域
		return true
	},
}

// Hub 维护所有在线的运维客户端，并负责告警广播
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	lock       sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
	}
}

func (h *Hub) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case client := <-h.register:
			h.lock.Lock()
			h.clients[client] = struct{}{}
			h.lock.Unlock()
			logger.Ctx(ctx).Info().Str("remote", client.conn.RemoteAddr().String()).Msg("operator client connected")
		case client := <-h.unregister:
			h.lock.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.lock.Unlock()
			logger.Ctx(ctx).Info().Msg("operator client disconnected")
		case msg := <-h.broadcast:
			h.lock.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default: // 客户端写入积压，丢弃本条，避免拖垮广播
				}
			}
			h.lock.RUnlock()
		}
	}
}

// Client 是一个 WebSocket 连接的代表
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		// 只消费心跳和关闭帧，运维端不会主动发消息
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256)}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// consumeAlerts 把告警 Topic 里的每条消息广播给所有在线客户端
func consumeAlerts(hub *Hub, reader *kafka.Reader) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		logger.Ctx(ctx).Info().Str("topic", reader.Config().Topic).Msg("✅ Alert consumer started.")
		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Ctx(ctx).Error().Err(err).Msg("could not read alert, retrying")
				time.Sleep(1 * time.Second)
				continue
			}
			logger.Ctx(ctx).Warn().
				Str("reason", string(msg.Key)).
				Str("alert", string(msg.Value)).
				Msg("🚨 Broadcasting stock alert to operators")
			hub.broadcast <- msg.Value
		}
	}
}

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	hub := newHub()
	reader := mq.NewReader(cfg.Infra.Kafka.Brokers, serviceName, cfg.Infra.Kafka.AlertTopic)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8082,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
			appCtx.Mux.HandleFunc("/ws/alerts", func(w http.ResponseWriter, r *http.Request) {
				serveWs(hub, w, r)
			})
		},
		Background: []func(ctx context.Context) error{
			hub.run,
			consumeAlerts(hub, reader),
		},
		OnShutdown: []func(ctx context.Context){
			func(ctx context.Context) { _ = reader.Close() },
		},
	})
}
