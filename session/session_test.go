package session

import (
	"net"
	"testing"
	"time"

	"github.com/chipstack/casinobot/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	sent []uint16
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.sent = append(m.sent, msgID)
	return nil
}
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestManagerAddGetRemove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, &MockConnection{})

	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", manager.Count())
	}

	retrieved, exists := manager.Get(sessionID)
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrieved != sess {
		t.Fatal("Get should return the same session instance")
	}

	manager.Remove(sessionID)
	if manager.Count() != 0 {
		t.Fatalf("Count() = %d after removal, want 0", manager.Count())
	}
	if _, exists := manager.Get(sessionID); exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManagerGetByUser(t *testing.T) {
	manager := NewManager()

	sess1 := NewSession("session1", &MockConnection{})
	sess1.Authenticate(100, 1, "alice")

	sess2 := NewSession("session2", &MockConnection{})
	sess2.Authenticate(200, 1, "bob")

	// Same user connected twice.
	sess3 := NewSession("session3", &MockConnection{})
	sess3.Authenticate(100, 1, "alice")

	// Same user ID in a different guild must not match.
	sess4 := NewSession("session4", &MockConnection{})
	sess4.Authenticate(100, 2, "alice")

	manager.Add(sess1)
	manager.Add(sess2)
	manager.Add(sess3)
	manager.Add(sess4)

	if got := manager.GetByUser(100, 1); len(got) != 2 {
		t.Errorf("GetByUser(100, 1) = %d sessions, want 2", len(got))
	}
	if got := manager.GetByUser(200, 1); len(got) != 1 {
		t.Errorf("GetByUser(200, 1) = %d sessions, want 1", len(got))
	}
	if got := manager.GetByUser(300, 1); len(got) != 0 {
		t.Errorf("GetByUser(300, 1) = %d sessions, want 0", len(got))
	}

	if len(manager.All()) != 4 {
		t.Errorf("All() = %d sessions, want 4", len(manager.All()))
	}
}

func TestSessionAuthenticate(t *testing.T) {
	sess := NewSession("test_session", &MockConnection{})
	if sess.Authenticated() {
		t.Fatal("fresh session should not be authenticated")
	}

	sess.Authenticate(42, 7, "alice")
	if !sess.Authenticated() {
		t.Fatal("session should be authenticated after Authenticate")
	}
	if sess.UserID != 42 || sess.GuildID != 7 || sess.Name != "alice" {
		t.Fatalf("identity = %d/%d/%q, want 42/7/alice", sess.UserID, sess.GuildID, sess.Name)
	}
}

func TestSessionSendTouchesIdleClock(t *testing.T) {
	conn := &MockConnection{}
	sess := NewSession("test_session", conn)

	before := sess.LastActive()
	time.Sleep(5 * time.Millisecond)
	if err := sess.Send(1, nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if !sess.LastActive().After(before) {
		t.Error("Send should refresh LastActive")
	}
	if len(conn.sent) != 1 || conn.sent[0] != 1 {
		t.Errorf("sent = %v, want [1]", conn.sent)
	}
}
