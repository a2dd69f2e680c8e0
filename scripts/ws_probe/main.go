package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/voicerelay-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_probe: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	room := flag.String("room", "probe", "room to join")
	name := flag.String("name", "prober", "display name")
	token := flag.String("token", "", "credential for the join frame")
	text := flag.String("text", "hello from probe", "chat message to send after joining")
	timeout := flag.Duration("timeout", 10*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	join := map[string]any{"type": proto.TypeJoin, "roomId": *room, "name": *name}
	if *token != "" {
		join["token"] = *token
	}
	if err := wsjson.Write(ctx, conn, join); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	for {
		var frame map[string]any
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		raw, _ := json.Marshal(frame)
		fmt.Printf("<- %s\n", raw)

		switch frame["type"] {
		case proto.TypeError:
			return fmt.Errorf("server error: %v", frame["error"])
		case proto.TypeJoined:
			fmt.Printf("joined as %v with %v peers\n", frame["clientId"], frame["peers"])
			if err := wsjson.Write(ctx, conn, map[string]any{
				"type":    proto.TypeChat,
				"message": *text,
			}); err != nil {
				return fmt.Errorf("send chat: %w", err)
			}
		case proto.TypeChat:
			// Our own echo confirms the round trip.
			if frame["message"] == *text {
				return nil
			}
		}
	}
}
