package driver

import (
	"sync"
	"testing"
	"time"

	"github.com/agentic-session/orchestrator/pkg/types"
)

func TestLastHumanExchangeID_FindsMostRecent(t *testing.T) {
	sess := &types.Session{
		Exchanges: []types.Exchange{
			{ID: "ex-1", Kind: types.KindHumanChat},
			{ID: "ex-2", Kind: types.KindAgentChat},
			{ID: "ex-3", Kind: types.KindToolOutput},
			{ID: "ex-4", Kind: types.KindHumanChat},
			{ID: "ex-5", Kind: types.KindAgentChat},
		},
	}

	if got := lastHumanExchangeID(sess); got != "ex-4" {
		t.Errorf("lastHumanExchangeID() = %q, want ex-4", got)
	}
}

func TestLastHumanExchangeID_NoneFound(t *testing.T) {
	sess := &types.Session{Exchanges: []types.Exchange{{ID: "ex-1", Kind: types.KindAgentChat}}}
	if got := lastHumanExchangeID(sess); got != "" {
		t.Errorf("lastHumanExchangeID() = %q, want empty", got)
	}
}

func TestJoinOrStart_SecondCallerWaits(t *testing.T) {
	d := New(Config{})

	wait1, started1 := d.joinOrStart("sess-1")
	if !started1 {
		t.Fatal("first caller should start")
	}
	if wait1 != nil {
		t.Fatal("starter should not get a wait channel")
	}

	wait2, started2 := d.joinOrStart("sess-1")
	if started2 {
		t.Fatal("second caller should join, not start")
	}
	if wait2 == nil {
		t.Fatal("joiner should get a wait channel")
	}

	var wg sync.WaitGroup
	var gotErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		gotErr = <-wait2
	}()

	d.mu.Lock()
	for _, w := range d.active["sess-1"].waiters {
		w <- nil
	}
	d.mu.Unlock()

	wg.Wait()
	if gotErr != nil {
		t.Errorf("waiter received error = %v, want nil", gotErr)
	}
}

func TestJoinOrStart_AllowsRestartAfterFinish(t *testing.T) {
	d := New(Config{})

	if _, started := d.joinOrStart("sess-2"); !started {
		t.Fatal("expected to start")
	}
	d.finish("sess-2")

	if _, started := d.joinOrStart("sess-2"); !started {
		t.Fatal("expected to start again after finish() cleared the entry")
	}
}

func TestAbort_ClosesAbortChannelAndCancelsContext(t *testing.T) {
	d := New(Config{})
	d.joinOrStart("sess-3")

	d.mu.Lock()
	entry := d.active["sess-3"]
	abortCh := entry.abortCh
	cancelled := false
	entry.cancel = func() { cancelled = true }
	d.mu.Unlock()

	d.Abort("sess-3")

	select {
	case <-abortCh:
	case <-time.After(time.Second):
		t.Fatal("abort channel was not closed")
	}
	if !cancelled {
		t.Error("expected cancel() to be invoked")
	}
}
