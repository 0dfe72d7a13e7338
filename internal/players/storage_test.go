package players

import (
	"resourcerush/internal/economy"
	"sync"
	"testing"
)

func TestNewRoster(t *testing.T) {
	s := NewRoster()
	if s == nil {
		t.Fatal("NewRoster() returned nil")
	}
	if s.Len() != 0 {
		t.Errorf("new roster should be empty, got %d players", s.Len())
	}
}

func TestRoster_Add(t *testing.T) {
	s := NewRoster()
	p := s.Add("id1", "Alice", "conn1")

	if p.ID != "id1" {
		t.Errorf("player ID = %q, want %q", p.ID, "id1")
	}
	if p.Name != "Alice" {
		t.Errorf("player Name = %q, want %q", p.Name, "Alice")
	}
	if !p.Connected || p.ConnID != "conn1" {
		t.Errorf("player should be connected on conn1, got %+v", p)
	}
	if p.Wallet != economy.NewWallet() {
		t.Errorf("Wallet = %+v, want starting wallet", p.Wallet)
	}
	if p.FinalScore != nil {
		t.Error("FinalScore should be nil before a game finishes")
	}
}

func TestRoster_Get(t *testing.T) {
	s := NewRoster()
	s.Add("id1", "Alice", "conn1")

	p := s.Get("id1")
	if p == nil {
		t.Fatal("Get returned nil for existing player")
	}
	if p.Name != "Alice" {
		t.Errorf("Name = %q, want %q", p.Name, "Alice")
	}

	if s.Get("nonexistent") != nil {
		t.Error("Get should return nil for nonexistent player")
	}
}

func TestRoster_ByName(t *testing.T) {
	s := NewRoster()
	s.Add("id1", "Alice", "conn1")
	s.Add("id2", "Bob", "conn2")

	if p := s.ByName("Bob"); p == nil || p.ID != "id2" {
		t.Errorf("ByName(Bob) = %+v, want id2", p)
	}
	if s.ByName("Carol") != nil {
		t.Error("ByName should return nil for unknown name")
	}
	if !s.NameTaken("Alice") {
		t.Error("NameTaken(Alice) should be true")
	}
}

func TestRoster_ListKeepsJoinOrder(t *testing.T) {
	s := NewRoster()
	names := []string{"Dave", "Alice", "Carol", "Bob"}
	for i, n := range names {
		s.Add(string(rune('a'+i)), n, "")
	}

	list := s.List()
	if len(list) != len(names) {
		t.Fatalf("List() returned %d players, want %d", len(list), len(names))
	}
	for i, p := range list {
		if p.Name != names[i] {
			t.Errorf("List()[%d] = %q, want %q", i, p.Name, names[i])
		}
	}
}

func TestRoster_Remove(t *testing.T) {
	s := NewRoster()
	s.Add("id1", "Alice", "conn1")
	s.Add("id2", "Bob", "conn2")
	s.Add("id3", "Carol", "conn3")

	if !s.Remove("id2") {
		t.Error("Remove should return true for existing player")
	}
	if s.Get("id2") != nil {
		t.Error("player should be nil after removal")
	}
	list := s.List()
	if len(list) != 2 || list[0].ID != "id1" || list[1].ID != "id3" {
		t.Errorf("List() after removal = %v, want [id1 id3]", ids(list))
	}

	if s.Remove("nonexistent") {
		t.Error("Remove should return false for nonexistent player")
	}
}

func TestRoster_FirstConnected(t *testing.T) {
	s := NewRoster()
	s.Add("id1", "Alice", "conn1")
	s.Add("id2", "Bob", "conn2")
	s.Add("id3", "Carol", "conn3")

	s.Disconnect("id1")
	if p := s.FirstConnected(); p == nil || p.ID != "id2" {
		t.Errorf("FirstConnected() = %v, want id2", p)
	}

	s.Disconnect("id2")
	s.Disconnect("id3")
	if p := s.FirstConnected(); p != nil {
		t.Errorf("FirstConnected() = %v, want nil", p)
	}

	s.Reconnect("id1", "conn9")
	if p := s.FirstConnected(); p == nil || p.ConnID != "conn9" {
		t.Errorf("FirstConnected() = %v, want id1 on conn9", p)
	}
}

func TestRoster_Disconnect(t *testing.T) {
	s := NewRoster()
	s.Add("id1", "Alice", "conn1")

	p := s.Disconnect("id1")
	if p.Connected || p.ConnID != "" {
		t.Errorf("player should be disconnected, got %+v", p)
	}
	if s.Len() != 1 {
		t.Error("disconnect should not remove the player")
	}
	if s.Disconnect("nonexistent") != nil {
		t.Error("Disconnect should return nil for nonexistent player")
	}
}

func TestRoster_ResetAll(t *testing.T) {
	s := NewRoster()
	p1 := s.Add("id1", "Alice", "conn1")
	p2 := s.Add("id2", "Bob", "conn2")
	p1.Wallet.Tokens = 12
	p2.Wallet.Holdings.Gold = 0
	score := 4000
	p1.FinalScore = &score
	s.Disconnect("id2")

	s.ResetAll()

	if p1.Wallet != economy.NewWallet() || p2.Wallet != economy.NewWallet() {
		t.Error("wallets should be reset to starting values")
	}
	if p1.FinalScore != nil {
		t.Error("final scores should be cleared")
	}
	if p2.Connected {
		t.Error("ResetAll should not change connection state")
	}
	if s.Len() != 2 {
		t.Error("players should still exist after reset")
	}
}

func TestRoster_ConcurrentAccess(t *testing.T) {
	s := NewRoster()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Add(string(rune(0x100+i)), "p", "")
		}(i)
	}
	wg.Wait()

	if s.Len() != 100 {
		t.Errorf("concurrent Len = %d, want 100", s.Len())
	}
}

func ids(list []*Player) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.ID)
	}
	return out
}
