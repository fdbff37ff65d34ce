package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/incident-demo/internal/logging"
)

const (
	streamWriteWait  = 5 * time.Second
	streamPongWait   = 30 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

// streamDemo upgrades to a websocket and pushes an engine snapshot after
// every state change until the client disconnects or the engine closes.
// Slow clients skip intermediate snapshots.
func (s *Server) streamDemo(c *gin.Context) {
	ctx := c.Request.Context()
	log := logging.FromContext(ctx, s.log)

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Debug(ctx, "websocket upgrade failed", logging.Err(err))
		return
	}
	defer conn.Close()

	snapshots, cancel := s.engine.Subscribe()
	defer cancel()

	// The read loop only services control frames and notices disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	log.Info(ctx, "demo stream opened")
	defer log.Info(ctx, "demo stream closed")

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "engine closed"),
					time.Now().Add(streamWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(snap); err != nil {
				log.Debug(ctx, "demo stream write failed", logging.Err(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
