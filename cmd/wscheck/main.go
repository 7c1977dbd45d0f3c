package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/doljabi-session/internal/channel"
	"github.com/park285/doljabi-session/internal/obslog"
	"github.com/park285/doljabi-session/internal/protocol"
)

func main() {
	wsURL := os.Getenv("DOLJABI_WS_URL")
	sessionKey := os.Getenv("DOLJABI_SESSION_KEY")
	roomCode := os.Getenv("DOLJABI_ROOM_CODE")

	if wsURL == "" {
		log.Fatal("DOLJABI_WS_URL is required")
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	ws := channel.NewWebSocket(channel.Options{
		URL:                  wsURL,
		SessionKey:           sessionKey,
		RoomCode:             roomCode,
		MaxReconnectAttempts: 1,
		ReconnectDelay:       time.Second,
		Logger:               obslog.L(),
	})
	ws.OnStateChange(func(state channel.State) {
		log.Printf("WS state: %s", state)
	})
	ws.OnMessage(func(ev protocol.Event) {
		fmt.Printf("WS event kind=%s %+v\n", ev.Kind(), ev)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}
	log.Printf("WS joined clientId=%s", ws.ClientID())

	if err := ws.Send(protocol.TimeSyncRequestFrame()); err != nil {
		log.Printf("time sync send error: %v", err)
	}

	// Observe for a short window
	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = ws.Close(context.Background())
}
