package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/khaledhikmat/yawn-go/service/config"
	"github.com/khaledhikmat/yawn-go/service/data"
	"github.com/khaledhikmat/yawn-go/service/lgr"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type fiberService struct {
	CfgSvc  config.IService
	DataSvc data.IService
	app     *fiber.App
	hub     *hub

	stateMu sync.RWMutex
	state   interface{}
}

func NewFiber(cfgsvc config.IService, datasvc data.IService) IService {
	svc := &fiberService{
		CfgSvc:  cfgsvc,
		DataSvc: datasvc,
		hub:     newHub(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "yawn-go",
		DisableStartupMessage: true,
	})

	api := app.Group("/api")
	api.Get("/state", svc.handleState)
	api.Get("/sessions", svc.handleSessions)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(svc.handleEventsWS))

	svc.app = app
	return svc
}

// Start listens until ctx is cancelled.
func (svc *fiberService) Start(ctx context.Context) error {
	go svc.hub.run()

	go func() {
		<-ctx.Done()
		svc.hub.stop()
		if err := svc.app.ShutdownWithTimeout(time.Duration(svc.CfgSvc.GetModeMaxShutdownTime()) * time.Second); err != nil {
			lgr.Logger.Error("web server shutdown", slog.Any("error", lgr.WithStack(err)))
		}
	}()

	lgr.Logger.Info("web server listening", slog.String("address", svc.CfgSvc.GetWebAddress()))
	return svc.app.Listen(svc.CfgSvc.GetWebAddress())
}

func (svc *fiberService) Broadcast(v interface{}) error {
	return svc.hub.publish(v)
}

func (svc *fiberService) SetState(v interface{}) {
	svc.stateMu.Lock()
	defer svc.stateMu.Unlock()
	svc.state = v
}

func (svc *fiberService) Clients() int {
	return svc.hub.count()
}

func (svc *fiberService) handleState(c *fiber.Ctx) error {
	svc.stateMu.RLock()
	state := svc.state
	svc.stateMu.RUnlock()

	if state == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(state)
}

func (svc *fiberService) handleSessions(c *fiber.Ctx) error {
	sessions, err := svc.DataSvc.RetrieveSessions()
	if err != nil {
		lgr.Logger.Error("retrieve sessions", slog.Any("error", lgr.WithStack(err)))
		return fiber.ErrInternalServerError
	}
	return c.JSON(sessions)
}

func (svc *fiberService) handleEventsWS(conn *websocket.Conn) {
	cl := newClient()
	if !svc.hub.add(cl) {
		return
	}

	// Send the current state first so a late client is not blank
	svc.stateMu.RLock()
	state := svc.state
	svc.stateMu.RUnlock()
	if state != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(state); err != nil {
			svc.hub.remove(cl)
			conn.Close()
			return
		}
	}

	go svc.readPump(conn, cl)
	svc.writePump(conn, cl)
}

// readPump only detects disconnects and keeps the read deadline fresh.
func (svc *fiberService) readPump(conn *websocket.Conn, cl *client) {
	defer svc.hub.remove(cl)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only writer on conn once the initial state is sent.
func (svc *fiberService) writePump(conn *websocket.Conn, cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
