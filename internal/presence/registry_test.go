package presence

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"sync"
	"testing"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

func seqColors() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("#%06x", n)
	}
}

func usernames(entries []domain.PresenceEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Username)
	}
	return out
}

func TestRandomColorFormat(t *testing.T) {
	re := regexp.MustCompile(`^#[0-9a-f]{6}$`)
	for i := 0; i < 100; i++ {
		if c := RandomColor(); !re.MatchString(c) {
			t.Fatalf("bad color %q", c)
		}
	}
}

func TestJoinSnapshotOrderAndOverwrite(t *testing.T) {
	reg := NewRegistry(NewColors(seqColors()))

	reg.Join("general", "alice", 1)
	reg.Join("general", "bob", 2)
	_, snap := reg.Join("general", "alice", 1)

	if got := usernames(snap); len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Fatalf("re-join must not duplicate or reorder, got %v", got)
	}
	if got := reg.Snapshot("general"); len(got) != 2 {
		t.Fatalf("snapshot mismatch: %v", got)
	}
}

func TestColorStableAcrossRoomsAndSessions(t *testing.T) {
	reg := NewRegistry(NewColors(seqColors()))

	c1, _ := reg.Join("general", "alice", 7)
	reg.Leave("general", "alice")
	c2, _ := reg.Join("random", "alice", 7)
	c3, _ := reg.Join("general", "alice", 7)

	if c1 != c2 || c2 != c3 {
		t.Fatalf("color must be stable, got %s %s %s", c1, c2, c3)
	}
	if c, ok := reg.Colors().Lookup(7); !ok || c != c1 {
		t.Fatalf("leave must not evict cached color, got %q %v", c, ok)
	}
}

func TestUnknownUserGetsUncachedColor(t *testing.T) {
	reg := NewRegistry(NewColors(seqColors()))

	c1, _ := reg.Join("general", "ghost", 0)
	c2, _ := reg.Join("general", "ghost", 0)
	if c1 == c2 {
		t.Fatalf("unknown user colors are not cached, got %s twice", c1)
	}
	if _, ok := reg.Colors().Lookup(0); ok {
		t.Fatal("zero id must never be cached")
	}
}

func TestLeaveUnknownIsNoop(t *testing.T) {
	reg := NewRegistry(nil)

	removed, snap := reg.Leave("general", "nobody")
	if removed {
		t.Fatal("leave of absent user reported removal")
	}
	if snap == nil || len(snap) != 0 {
		t.Fatalf("expected empty non-nil snapshot, got %#v", snap)
	}
	if rooms := reg.Rooms(); len(rooms) != 0 {
		t.Fatalf("empty room must be dropped, got %v", rooms)
	}
}

func TestRoomsAreIsolated(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Join("a", "alice", 1)
	reg.Join("b", "bob", 2)

	if got := usernames(reg.Snapshot("a")); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("room a: %v", got)
	}
	if got := reg.Rooms(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("rooms: %v", got)
	}
}

func TestEvict(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Join("general", "alice", 1)
	reg.Join("general", "bob", 2)

	evicted := reg.Evict("general")
	if len(evicted) != 2 {
		t.Fatalf("expected 2 evicted, got %v", evicted)
	}
	if snap := reg.Snapshot("general"); len(snap) != 0 {
		t.Fatalf("room must be empty after evict, got %v", snap)
	}
	if evicted := reg.Evict("general"); evicted != nil {
		t.Fatalf("second evict must be a no-op, got %v", evicted)
	}

	reg.Join("general", "carol", 3)
	if got := usernames(reg.Snapshot("general")); len(got) != 1 || got[0] != "carol" {
		t.Fatalf("room must be usable after evict, got %v", got)
	}
}

// The snapshot must always equal the set of users whose latest event is a join.
func TestRandomJoinLeaveSequenceMatchesModel(t *testing.T) {
	reg := NewRegistry(nil)
	model := map[string]bool{}
	users := []string{"alice", "bob", "carol", "dave"}
	r := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 500; i++ {
		u := users[r.IntN(len(users))]
		if r.IntN(2) == 0 {
			reg.Join("general", u, domain.UserID(r.IntN(4)+1))
			model[u] = true
		} else {
			reg.Leave("general", u)
			delete(model, u)
		}

		snap := reg.Snapshot("general")
		if len(snap) != len(model) {
			t.Fatalf("step %d: snapshot %v, model %v", i, snap, model)
		}
		for _, e := range snap {
			if !model[e.Username] {
				t.Fatalf("step %d: unexpected %s in snapshot", i, e.Username)
			}
		}
	}
}

func TestConcurrentJoinLeave(t *testing.T) {
	reg := NewRegistry(nil)
	rooms := []string{"a", "b", "c"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u := fmt.Sprintf("user-%d", i)
			for _, room := range rooms {
				reg.Join(room, u, domain.UserID(i+1))
			}
			if i%2 == 0 {
				for _, room := range rooms {
					reg.Leave(room, u)
				}
			}
		}(i)
	}
	wg.Wait()

	for _, room := range rooms {
		if got := len(reg.Snapshot(room)); got != 25 {
			t.Fatalf("room %s: expected 25 members, got %d", room, got)
		}
	}
}
