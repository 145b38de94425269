package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// pump writes events to conn until the subscription ends, the peer goes away
// or ctx is done. Inbound frames are discarded.
func pump(ctx context.Context, conn *ws.Conn, events <-chan []byte) {
	ctx = conn.CloseRead(ctx)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-events:
			if !ok {
				conn.Close(ws.StatusPolicyViolation, "too slow")
				return
			}
			if err := write(ctx, conn, msg); err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func write(ctx context.Context, conn *ws.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, ws.MessageText, msg)
}
