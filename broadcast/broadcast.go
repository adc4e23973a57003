// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/chipstack/casinobot/logger"
	"github.com/chipstack/casinobot/network"
	"github.com/chipstack/casinobot/session"
)

type Broadcaster interface {
	BroadcastToAll(msgID uint16, data []byte) error
	BroadcastToUser(userID, guildID int64, msgID uint16, data []byte) error
}

// SessionBroadcaster fans a packet out over the live sessions. Send
// failures are skipped; the read loop notices dead connections.
type SessionBroadcaster struct {
	sessions *session.Manager
}

func NewSessionBroadcaster(sessions *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{sessions: sessions}
}

func (b *SessionBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	for _, s := range b.sessions.All() {
		if err := s.Send(msgID, data); err != nil {
			continue
		}
	}
	return nil
}

func (b *SessionBroadcaster) BroadcastToUser(userID, guildID int64, msgID uint16, data []byte) error {
	for _, s := range b.sessions.GetByUser(userID, guildID) {
		if err := s.Send(msgID, data); err != nil {
			continue
		}
	}
	return nil
}

// WinAnnouncer publishes big wins to every connected client.
type WinAnnouncer struct {
	broadcaster Broadcaster
}

func NewWinAnnouncer(broadcaster Broadcaster) *WinAnnouncer {
	return &WinAnnouncer{broadcaster: broadcaster}
}

type winAnnouncement struct {
	Player string          `json:"player"`
	Game   string          `json:"game"`
	Payout decimal.Decimal `json:"payout"`
}

func (a *WinAnnouncer) AnnounceWin(playerName, gameType string, payout decimal.Decimal) {
	data, err := json.Marshal(winAnnouncement{
		Player: playerName,
		Game:   gameType,
		Payout: payout,
	})
	if err != nil {
		logger.Log.Errorf("encode win announcement: %v", err)
		return
	}
	a.broadcaster.BroadcastToAll(network.MsgTypeAnnounce, data)
}
