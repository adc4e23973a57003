// Interactive test client. Authenticates, then turns stdin lines into
// command packets:
//
//	account
//	balance
//	stats
//	blackjack start <amount> | hit | stand | double
//	roulette bet <category> <amount>
//	roulette bet number <tile> <amount>
//	roulette spin
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeAuth     = 101
	MsgTypeCommand  = 201
	MsgTypeResponse = 202
	MsgTypeAnnounce = 301
	MsgTypeError    = 401
)

type commandRequest struct {
	Command string `json:"command"`
	Action  string `json:"action,omitempty"`
	BetType string `json:"bet_type,omitempty"`
	Number  *int   `json:"number,omitempty"`
	Amount  string `json:"amount,omitempty"`
}

// send frames and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func parseLine(line string) (*commandRequest, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, false
	}

	switch fields[0] {
	case "account", "balance", "stats":
		return &commandRequest{Command: fields[0]}, true

	case "blackjack", "bj":
		if len(fields) < 2 {
			return nil, false
		}
		req := &commandRequest{Command: "blackjack", Action: fields[1]}
		if len(fields) > 2 {
			req.Amount = fields[2]
		}
		return req, true

	case "roulette", "rl":
		if len(fields) < 2 {
			return nil, false
		}
		if fields[1] == "spin" {
			return &commandRequest{Command: "roulette", Action: "spin"}, true
		}
		if fields[1] != "bet" || len(fields) < 4 {
			return nil, false
		}
		req := &commandRequest{Command: "roulette", Action: "bet", BetType: fields[2]}
		rest := fields[3:]
		if fields[2] == "number" {
			tile, err := strconv.Atoi(rest[0])
			if err != nil || len(rest) < 2 {
				return nil, false
			}
			req.Number = &tile
			rest = rest[1:]
		} else {
			// Multi-word categories like "first twelve 20".
			req.BetType = strings.Join(append([]string{fields[2]}, rest[:len(rest)-1]...), " ")
			rest = rest[len(rest)-1:]
		}
		req.Amount = rest[0]
		return req, true
	}
	return nil, false
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	userID := flag.Int64("user", 1, "user id")
	guildID := flag.Int64("guild", 1, "guild id")
	name := flag.String("name", "tester", "player name")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			switch msgID {
			case MsgTypeAnnounce:
				log.Printf("** ANNOUNCE: %s", string(data))
			case MsgTypeError:
				log.Printf("!! ERROR: %s", string(data))
			default:
				log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
			}
		}
	}()

	auth := map[string]interface{}{"user_id": *userID, "guild_id": *guildID, "name": *name}
	authData, _ := json.Marshal(auth)
	if err := send(c, MsgTypeAuth, authData); err != nil {
		log.Fatalf("Auth failed: %v", err)
	}

	log.Println("Client started. Try 'account', then 'blackjack start 50'.")

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			req, ok := parseLine(strings.TrimSpace(text))
			if !ok {
				continue
			}
			data, _ := json.Marshal(req)
			if err := send(c, MsgTypeCommand, data); err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> SENT: %s", string(data))
		}
	}
}
