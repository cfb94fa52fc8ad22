// Package main is a terminal client for the signaling hub, used for
// manual testing and support-team drills. It speaks the same event
// contract as the mobile app and staff portal, and drives the shared
// call state machine the way a real endpoint does.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"vetline/backend/internal/callstate"
	"vetline/backend/internal/models"

	"github.com/gorilla/websocket"
)

type client struct {
	conn *websocket.Conn
	done chan struct{}

	// One call at a time; plenty for a drill.
	callID     string
	call       *callstate.Machine
	candidates *callstate.CandidateQueue
	roomID     string
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "hub base URL")
	userID := flag.String("user", "", "user id to register as")
	role := flag.String("role", "user", "role: user, counsellor, or peer")
	name := flag.String("name", "drill", "display name")
	status := flag.String("status", "available", "initial availability")
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}

	token, err := fetchToken(*addr)
	if err != nil {
		log.Fatalf("token: %v", err)
	}

	wsURL := strings.Replace(*addr, "http", "ws", 1) + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}

	c := &client{
		conn:       conn,
		done:       make(chan struct{}),
		call:       callstate.New(),
		candidates: callstate.NewCandidateQueue(),
	}
	defer conn.Close()

	c.emit(models.EvRegister, models.RegisterPayload{
		UserID: *userID, UserType: *role, Name: *name, Status: *status,
	})

	go c.readLoop()

	fmt.Println("Commands: /status <s>, /request <type> <reason>, /accept <request_id>,")
	fmt.Println("  /join <room_id>, /leave, /call <user_id>, /answer, /reject, /hangup,")
	fmt.Println("  /hold, /resume, /quit; anything else is sent as a chat message.")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return
		}
		c.handleCommand(line, *name)
	}
}

func fetchToken(addr string) (string, error) {
	resp, err := http.Get(addr + "/token")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Token, nil
}

func (c *client) emit(event string, payload interface{}) {
	ev := models.NewEvent(event, payload)
	if err := c.conn.WriteJSON(ev); err != nil {
		log.Printf("write: %v", err)
	}
}

func (c *client) handleCommand(line, name string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/status":
		if len(fields) == 2 {
			c.emit(models.EvUpdateStatus, models.UpdateStatusPayload{Status: fields[1]})
		}
	case "/request":
		if len(fields) >= 2 {
			c.emit(models.EvRequestHumanChat, models.RequestHumanChatPayload{
				UserName: name, PreferredType: fields[1], Reason: strings.Join(fields[2:], " "),
			})
		}
	case "/accept":
		if len(fields) == 2 {
			c.emit(models.EvAcceptHumanChat, models.AcceptHumanChatPayload{RequestID: fields[1]})
		}
	case "/join":
		if len(fields) == 2 {
			c.roomID = fields[1]
			c.emit(models.EvJoinChatRoom, models.JoinChatRoomPayload{RoomID: c.roomID, Name: name})
		}
	case "/leave":
		if c.roomID != "" {
			c.emit(models.EvLeaveChatRoom, models.LeaveChatRoomPayload{RoomID: c.roomID})
			c.roomID = ""
		}
	case "/call":
		if len(fields) == 2 {
			c.call = callstate.New()
			c.candidates = callstate.NewCandidateQueue()
			c.call.Fire(callstate.InputInitiate)
			c.emit(models.EvCallInitiate, models.CallInitiatePayload{
				TargetUserID: fields[1], CallerName: name, CallType: "audio",
			})
		}
	case "/answer":
		if c.callID != "" {
			c.emit(models.EvCallAccept, models.CallAcceptPayload{CallID: c.callID})
		}
	case "/reject":
		if c.callID != "" {
			c.fireLocal(callstate.InputReject)
			c.emit(models.EvCallReject, models.CallRejectPayload{CallID: c.callID, Reason: "declined"})
		}
	case "/hangup":
		if c.callID != "" {
			c.fireLocal(callstate.InputHangup)
			c.emit(models.EvCallEnd, models.CallEndPayload{CallID: c.callID})
		}
	case "/hold":
		if c.callID != "" {
			c.fireLocal(callstate.InputHold)
			c.emit(models.EvCallHold, models.CallHoldPayload{CallID: c.callID})
		}
	case "/resume":
		if c.callID != "" {
			c.fireLocal(callstate.InputResume)
			c.emit(models.EvCallResume, models.CallHoldPayload{CallID: c.callID})
		}
	default:
		if c.roomID == "" {
			fmt.Println("join a room first")
			return
		}
		c.emit(models.EvChatMessage, models.ChatMessagePayload{RoomID: c.roomID, Message: line})
	}
}

func (c *client) fireLocal(in callstate.Input) {
	if st, err := c.call.Fire(in); err == nil {
		fmt.Printf("[call] -> %s\n", st)
	}
}

func (c *client) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Printf("connection closed: %v", err)
			os.Exit(0)
		}
		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		c.handleEvent(ev)
	}
}

func (c *client) handleEvent(ev models.Event) {
	switch ev.Event {
	case models.EvIncomingCall:
		var p models.IncomingCallPayload
		json.Unmarshal(ev.Data, &p)
		c.callID = p.CallID
		c.call = callstate.New()
		c.candidates = callstate.NewCandidateQueue()
		c.call.Fire(callstate.InputInitiate)
		c.call.Fire(callstate.InputRinging)
		fmt.Printf("[call] incoming %s call from %s (/answer or /reject)\n", p.CallType, p.CallerName)

	case models.EvCallAccepted:
		var p models.CallAcceptedPayload
		json.Unmarshal(ev.Data, &p)
		c.callID = p.CallID
		c.fireLocal(callstate.InputAccept)

	case models.EvCallConnected:
		var p models.CallConnectedPayload
		json.Unmarshal(ev.Data, &p)
		c.roomID = p.RoomID
		fmt.Printf("[call] connected to %s (in-call room %s)\n", p.PeerName, p.RoomID)

	case models.EvCallHeld:
		c.fireLocal(callstate.InputHold)
		fmt.Println("[call] peer put the call on hold")

	case models.EvCallResumed:
		c.fireLocal(callstate.InputResume)
		fmt.Println("[call] call resumed")

	case models.EvCallRejected:
		c.fireLocal(callstate.InputReject)
		fmt.Println("[call] rejected")

	case models.EvCallEnded:
		c.fireLocal(callstate.InputDisconnect)
		fmt.Printf("[call] ended; duration %s\n", c.call.Duration().Round(time.Second))

	case models.EvCallFailed:
		var p models.CallFailedPayload
		json.Unmarshal(ev.Data, &p)
		c.fireLocal(callstate.InputMediaError)
		fmt.Printf("[call] failed: %s\n", p.Message)

	case models.EvWebRTCOffer, models.EvWebRTCAnswer:
		// A real endpoint applies the remote description here; either
		// way the candidate queue opens and flushes in arrival order.
		flushed := c.candidates.MarkReady()
		fmt.Printf("[rtc] remote description applied, %d queued candidates flushed\n", len(flushed))

	case models.EvWebRTCIceCandidate:
		var p models.IceCandidatePayload
		json.Unmarshal(ev.Data, &p)
		if usable := c.candidates.Push(p.Candidate); usable == nil {
			fmt.Println("[rtc] candidate queued (no remote description yet)")
		} else {
			fmt.Println("[rtc] candidate applied")
		}

	case models.EvNewChatMessage:
		var p models.NewChatMessagePayload
		json.Unmarshal(ev.Data, &p)
		fmt.Printf("[%s] %s: %s\n", p.Timestamp.Format("15:04:05"), p.SenderName, p.Message)

	default:
		fmt.Printf("[event] %s %s\n", ev.Event, string(ev.Data))
	}
}
