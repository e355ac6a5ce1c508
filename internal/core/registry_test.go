package core

import (
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/Relay/internal/domain"
)

func TestRegistryAddRemoveIdempotent(t *testing.T) {
	r := NewRegistry()
	s := &Session{ID: "a"}

	r.Add("room", s)
	r.Add("room", s)
	if got := r.MemberCount("room"); got != 1 {
		t.Errorf("double add: count = %d, want 1", got)
	}

	if remaining := r.Remove("room", "a"); remaining != 0 {
		t.Errorf("remove last: remaining = %d, want 0", remaining)
	}
	if remaining := r.Remove("room", "a"); remaining != 0 {
		t.Errorf("repeated remove: remaining = %d, want 0", remaining)
	}
	if r.Exists("room") {
		t.Errorf("empty room should not exist")
	}
}

func TestRegistryExists(t *testing.T) {
	r := NewRegistry()
	if r.Exists("ghost") {
		t.Errorf("never-joined room exists")
	}
	r.Add("ghost", &Session{ID: "a"})
	if !r.Exists("ghost") {
		t.Errorf("occupied room does not exist")
	}
}

func TestRegistryJoinSnapshotBeforeAdmission(t *testing.T) {
	r := NewRegistry()
	a := &Session{ID: "a"}
	b := &Session{ID: "b"}

	info, _, err := r.Join("room", "", a, 0)
	if err != nil {
		t.Fatalf("join a: %v", err)
	}
	if info.RoomCount != 0 || len(info.Clients) != 0 {
		t.Errorf("first joiner should see an empty room, got count=%d", info.RoomCount)
	}

	info, _, err = r.Join("room", "", b, 0)
	if err != nil {
		t.Fatalf("join b: %v", err)
	}
	if info.RoomCount != 1 {
		t.Errorf("second joiner should see one member, got %d", info.RoomCount)
	}
	if _, ok := info.Clients["a"]; !ok {
		t.Errorf("snapshot missing member a: %v", info.Clients)
	}
	if r.MemberCount("room") != 2 {
		t.Errorf("room should hold both members")
	}
}

func TestRegistryJoinCapacity(t *testing.T) {
	r := NewRegistry()
	r.Add("room", &Session{ID: "a"})
	r.Add("room", &Session{ID: "b"})

	_, _, err := r.Join("room", "", &Session{ID: "c"}, 2)
	if err != ErrRoomFull {
		t.Fatalf("join at capacity: err = %v, want ErrRoomFull", err)
	}
	if r.MemberCount("room") != 2 {
		t.Errorf("failed join mutated membership")
	}
}

func TestRegistryJoinCapacityConcurrent(t *testing.T) {
	const capacity = 2
	r := NewRegistry()

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := &Session{ID: ClientID(fmt.Sprintf("s%d", i))}
			if _, _, err := r.Join("room", "", s, capacity); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if admitted != capacity {
		t.Errorf("admitted %d members into a room of capacity %d", admitted, capacity)
	}
	if got := r.MemberCount("room"); got != capacity {
		t.Errorf("member count = %d, want %d", got, capacity)
	}
}

func TestRegistryJoinSwitchesRooms(t *testing.T) {
	r := NewRegistry()
	a := &Session{ID: "a"}
	other := &Session{ID: "x"}
	r.Add("old", a)
	r.Add("old", other)

	_, vacated, err := r.Join("new", "old", a, 0)
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if r.MemberCount("old") != 1 {
		t.Errorf("old room count = %d, want 1", r.MemberCount("old"))
	}
	if r.MemberCount("new") != 1 {
		t.Errorf("new room count = %d, want 1", r.MemberCount("new"))
	}
	// vacated holds the departure-time population, mover included
	ids := map[ClientID]bool{}
	for _, s := range vacated {
		ids[s.ID] = true
	}
	if !ids["a"] || !ids["x"] || len(ids) != 2 {
		t.Errorf("vacated = %v, want {a, x}", ids)
	}
}

func TestRegistryCreateTaken(t *testing.T) {
	r := NewRegistry()
	r.Add("busy", &Session{ID: "a"})

	if _, _, err := r.Create("busy", "", &Session{ID: "b"}); err != ErrNameTaken {
		t.Errorf("create on occupied room: err = %v, want ErrNameTaken", err)
	}
	if _, _, err := r.Create("fresh", "", &Session{ID: "b"}); err != nil {
		t.Errorf("create on fresh room: %v", err)
	}
	if r.MemberCount("fresh") != 1 {
		t.Errorf("creator should be sole member")
	}
}

func TestRegistryDescribePresence(t *testing.T) {
	r := NewRegistry()
	s := &Session{ID: "a", presence: domain.NewPresence()}
	r.Add("room", s)

	info := r.Describe("room")
	p, ok := info.Clients["a"]
	if !ok {
		t.Fatalf("describe missing member a")
	}
	if !p.Video || p.Audio || p.Screen {
		t.Errorf("unexpected default presence: %+v", p)
	}

	s.SetProfile(map[string]any{"name": "alice"})
	p = r.Describe("room").Clients["a"]
	if p.Profile["name"] != "alice" {
		t.Errorf("profile not visible in snapshot: %+v", p.Profile)
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Add("one", &Session{ID: "a"})
	r.Add("two", &Session{ID: "b"})
	r.Add("two", &Session{ID: "c"})

	counts := map[domain.RoomName]int{}
	for _, st := range r.List() {
		counts[st.Name] = st.MemberCount
	}
	if counts["one"] != 1 || counts["two"] != 2 || len(counts) != 2 {
		t.Errorf("list = %v", counts)
	}
}
