package services

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"proctorhub/internal/core/domain"
)

func TestRoomRegistry_JoinAndLookup(t *testing.T) {
	r := NewRoomRegistry()

	r.Join("c1", "s1", domain.RoleCandidate, "Alice")
	r.Join("c2", "s1", domain.RoleInterviewer, "Bob")
	r.Join("c3", "s2", domain.RoleCandidate, "Carol")

	member, ok := r.Member("c1")
	if !ok {
		t.Fatalf("expected c1 to be registered")
	}
	if member.SessionID != "s1" || member.Role != domain.RoleCandidate || member.Name != "Alice" {
		t.Fatalf("unexpected member: %+v", member)
	}

	got := connIDs(r.Members("s1"))
	if len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
		t.Fatalf("expected [c1 c2] in s1, got %v", got)
	}

	if r.Sessions() != 2 {
		t.Fatalf("expected 2 active sessions, got %d", r.Sessions())
	}
}

func TestRoomRegistry_MembersExceptSkipsSender(t *testing.T) {
	r := NewRoomRegistry()
	r.Join("c1", "s1", domain.RoleCandidate, "Alice")
	r.Join("c2", "s1", domain.RoleInterviewer, "Bob")
	r.Join("c3", "s1", domain.RoleInterviewer, "Dan")

	got := connIDs(r.MembersExcept("s1", "c2"))
	if len(got) != 2 || got[0] != "c1" || got[1] != "c3" {
		t.Fatalf("expected [c1 c3], got %v", got)
	}
}

func TestRoomRegistry_RejoinMovesConnection(t *testing.T) {
	r := NewRoomRegistry()
	r.Join("c1", "s1", domain.RoleCandidate, "Alice")

	// Last join wins: the connection moves to the new session.
	r.Join("c1", "s2", domain.RoleCandidate, "Alice")

	if got := r.Members("s1"); len(got) != 0 {
		t.Fatalf("expected s1 to be empty after rejoin, got %v", got)
	}
	member, ok := r.Member("c1")
	if !ok || member.SessionID != "s2" {
		t.Fatalf("expected c1 in s2, got %+v (ok=%v)", member, ok)
	}
	if r.Sessions() != 1 {
		t.Fatalf("expected empty room to be dropped, sessions=%d", r.Sessions())
	}
}

func TestRoomRegistry_LeaveIsIdempotent(t *testing.T) {
	r := NewRoomRegistry()
	r.Join("c1", "s1", domain.RoleCandidate, "Alice")

	r.Leave("c1")
	r.Leave("c1")
	r.Leave("never-joined")

	if _, ok := r.Member("c1"); ok {
		t.Fatalf("expected c1 to be gone")
	}
	if r.Sessions() != 0 {
		t.Fatalf("expected no sessions, got %d", r.Sessions())
	}
}

func TestRoomRegistry_ConcurrentJoinLeave(t *testing.T) {
	r := NewRoomRegistry()

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			connID := domain.ConnID(fmt.Sprintf("conn-%d", i))
			sessionID := domain.SessionID(fmt.Sprintf("session-%d", i%5))
			for j := 0; j < 100; j++ {
				r.Join(connID, sessionID, domain.RoleCandidate, "worker")
				r.Member(connID)
				r.Members(sessionID)
				if j%10 == 9 {
					r.Leave(connID)
				}
			}
			r.Leave(connID)
		}(i)
	}
	wg.Wait()

	if r.Sessions() != 0 {
		t.Fatalf("expected all rooms empty after all leaves, got %d", r.Sessions())
	}
}

func connIDs(ids []domain.ConnID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	sort.Strings(out)
	return out
}
