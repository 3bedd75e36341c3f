package bridge

import (
	"fmt"
	"sync"
	"testing"
)

func TestSessionTableConcurrentAccess(t *testing.T) {
	table := NewSessionTable()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sid := fmt.Sprintf("CA%03d", i)
			if !table.Put(sid, &Session{}) {
				t.Errorf("Put(%s) rejected on first insert", sid)
				return
			}
			if _, ok := table.Get(sid); !ok {
				t.Errorf("Get(%s) missed after Put", sid)
			}
			table.Delete(sid)
		}(i)
	}
	wg.Wait()

	if table.Len() != 0 {
		t.Fatalf("table has %d sessions after all deletes, want 0", table.Len())
	}
}

func TestSessionTableRejectsDuplicateSID(t *testing.T) {
	table := NewSessionTable()
	if !table.Put("CA001", &Session{}) {
		t.Fatal("first Put rejected")
	}
	if table.Put("CA001", &Session{}) {
		t.Fatal("duplicate call SID accepted")
	}
	if table.Len() != 1 {
		t.Fatalf("table has %d sessions, want 1", table.Len())
	}
}

func TestSessionTableReleaseChecksOwnership(t *testing.T) {
	table := NewSessionTable()
	owner := &Session{}
	if !table.Put("CA001", owner) {
		t.Fatal("first Put rejected")
	}

	table.Release("CA001", &Session{})
	if _, ok := table.Get("CA001"); !ok {
		t.Fatal("release by a non-owner evicted the live session")
	}

	table.Release("CA001", owner)
	if table.Len() != 0 {
		t.Fatalf("table has %d sessions after owner release, want 0", table.Len())
	}
}
