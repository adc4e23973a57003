package rpc

import (
	"net"
	"net/rpc"

	"github.com/chipstack/casinobot/logger"
	"github.com/chipstack/casinobot/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins serving RPC requests. Services must be registered with the
// net/rpc package before the first connection arrives.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// CasinoService exposes account lookups for operator tooling.
type CasinoService struct {
	playerService *services.PlayerService
}

func NewCasinoService(ps *services.PlayerService) *CasinoService {
	return &CasinoService{playerService: ps}
}

type PlayerStatsArgs struct {
	UserID  int64
	GuildID int64
}

// PlayerStatsReply carries the money amounts as exact decimal strings.
type PlayerStatsReply struct {
	Name         string
	Balance      string
	TotalGames   int
	Wins         int
	Losses       int
	Pushes       int
	TotalWagered string
	TotalPayout  string
}

// GetPlayerWithStats follows the net/rpc method shape: exported method,
// pointer reply, error return.
func (cs *CasinoService) GetPlayerWithStats(args *PlayerStatsArgs, reply *PlayerStatsReply) error {
	player, stats, err := cs.playerService.GetPlayerWithStats(args.UserID, args.GuildID)
	if err != nil {
		return err
	}

	reply.Name = player.Name
	reply.Balance = player.Money.String()
	reply.TotalGames = stats.TotalGames
	reply.Wins = stats.Wins
	reply.Losses = stats.Losses
	reply.Pushes = stats.Pushes
	reply.TotalWagered = stats.TotalWagered.String()
	reply.TotalPayout = stats.TotalPayout.String()
	return nil
}
