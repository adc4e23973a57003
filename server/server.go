package server

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/chipstack/casinobot/broadcast"
	"github.com/chipstack/casinobot/commands"
	"github.com/chipstack/casinobot/logger"
	"github.com/chipstack/casinobot/monitor"
	"github.com/chipstack/casinobot/network"
	"github.com/chipstack/casinobot/persistence"
	casinorpc "github.com/chipstack/casinobot/rpc"
	"github.com/chipstack/casinobot/services"
	"github.com/chipstack/casinobot/session"
	"github.com/chipstack/casinobot/timer"
)

// Options carries the tunables the server needs beyond its dependencies.
type Options struct {
	WSAddress         string
	RPCAddress        string
	StartingBalance   decimal.Decimal
	AnnounceThreshold decimal.Decimal
	Heartbeat         time.Duration
	IdleTimeout       time.Duration
}

type CasinoServer struct {
	opts           Options
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	router         *commands.Router
	monitor        *monitor.Monitor
	timers         *timer.TimerManager
	rpcServer      *casinorpc.Server
	shutdownChan   chan struct{}
}

func NewCasinoServer(opts Options, db persistence.Database, mon *monitor.Monitor) *CasinoServer {
	s := &CasinoServer{
		opts:           opts,
		sessionManager: session.NewManager(),
		monitor:        mon,
		timers:         timer.NewTimerManager(),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	broadcaster := broadcast.NewSessionBroadcaster(s.sessionManager)
	announcer := broadcast.NewWinAnnouncer(broadcaster)

	playerService := services.NewPlayerService(db, opts.StartingBalance)
	gameService := services.NewGameService(db, mon, announcer, opts.AnnounceThreshold,
		rand.New(rand.NewSource(time.Now().UnixNano())))
	s.router = commands.NewRouter(playerService, gameService)

	rpcServer, err := casinorpc.NewServer(opts.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer
	rpc.Register(casinorpc.NewCasinoService(playerService))

	return s
}

func (s *CasinoServer) Start() error {
	go s.rpcServer.Start()

	if s.opts.IdleTimeout > 0 {
		s.timers.AddTimer(s.opts.IdleTimeout, s.opts.IdleTimeout, s.sweepIdleSessions)
	}

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Casino server listening on %s", s.opts.WSAddress)
	return http.ListenAndServe(s.opts.WSAddress, nil)
}

func (s *CasinoServer) Shutdown() {
	close(s.shutdownChan)
	s.timers.Stop()
	s.rpcServer.Stop()
}

func (s *CasinoServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *CasinoServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	if s.opts.Heartbeat > 0 {
		wsConn.SetHeartbeat(s.opts.Heartbeat)
	}

	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncActiveSessions()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.ID)

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.ID)
		s.sessionManager.Remove(sess.ID)
		s.monitor.DecActiveSessions()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

// authRequest binds a chat identity to the connection. There is no
// credential check; the server trusts the fronting chat gateway.
type authRequest struct {
	UserID  int64  `json:"user_id"`
	GuildID int64  `json:"guild_id"`
	Name    string `json:"name"`
}

func (s *CasinoServer) handlePacket(sess *session.Session, packet *network.Packet) {
	sess.Touch()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		// Touch above is all a heartbeat does.
	case network.MsgTypeAuth:
		s.handleAuth(sess, packet)
	case network.MsgTypeCommand:
		s.handleCommand(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
		s.sendError(sess, "unknown message type")
	}
}

func (s *CasinoServer) handleAuth(sess *session.Session, packet *network.Packet) {
	var req authRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.UserID == 0 {
		s.sendError(sess, "malformed auth")
		return
	}

	sess.Authenticate(req.UserID, req.GuildID, req.Name)
	logger.Log.Infof("Session %s authenticated as %s (%d/%d)", sess.ID, req.Name, req.UserID, req.GuildID)

	data, _ := json.Marshal(map[string]string{"session_id": sess.ID})
	sess.Send(network.MsgTypeAuth, data)
}

func (s *CasinoServer) handleCommand(sess *session.Session, packet *network.Packet) {
	if !sess.Authenticated() {
		s.sendError(sess, "authenticate first")
		return
	}

	s.monitor.IncCommandsReceived()
	start := time.Now()
	resp := s.router.Handle(sess.UserID, sess.GuildID, sess.Name, packet.Data)
	s.monitor.ObserveCommandLatency(time.Since(start))

	data, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Errorf("encode response for session %s: %v", sess.ID, err)
		return
	}
	sess.Send(network.MsgTypeResponse, data)
}

func (s *CasinoServer) sendError(sess *session.Session, message string) {
	data, _ := json.Marshal(map[string]string{"error": message})
	sess.Send(network.MsgTypeError, data)
}

// sweepIdleSessions closes connections that have gone quiet. The read
// loop then unregisters them.
func (s *CasinoServer) sweepIdleSessions() {
	cutoff := time.Now().Add(-s.opts.IdleTimeout)
	for _, sess := range s.sessionManager.All() {
		if sess.LastActive().Before(cutoff) {
			logger.Log.Infof("Closing idle session %s", sess.ID)
			sess.Close()
		}
	}
}
