package table

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type testObserver struct {
	events []Event[string]
}

func (o *testObserver) OnTableEvent(e Event[string]) {
	o.events = append(o.events, e)
}

type dropCounter struct {
	drops int
}

func (d *dropCounter) Drop() { d.drops++ }

func TestTable_Basic(t *testing.T) {
	tbl := New[string]()

	h, err := tbl.Insert("test")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if h == 0 {
		t.Fatal("expected non-zero handle")
	}

	val, ok := tbl.Get(h)
	if !ok || val != "test" {
		t.Fatalf("Get = %q, %v", val, ok)
	}

	if !tbl.Replace(h, "other") {
		t.Fatal("Replace failed")
	}

	val, ok = tbl.Remove(h)
	if !ok || val != "other" {
		t.Fatalf("Remove = %q, %v", val, ok)
	}
	if tbl.Len() != 0 {
		t.Fatalf("Len = %d, want 0", tbl.Len())
	}
	if _, ok := tbl.Remove(h); ok {
		t.Fatal("second Remove should fail")
	}
	if _, ok := tbl.Get(0); ok {
		t.Fatal("handle 0 must be invalid")
	}
}

func TestTable_ReusesFreedSlots(t *testing.T) {
	tbl := New[int]()
	h1, _ := tbl.Insert(1)
	h2, _ := tbl.Insert(2)
	tbl.Remove(h1)

	h3, _ := tbl.Insert(3)
	if h3 != h1 {
		t.Fatalf("expected freed handle %d to be reused, got %d", h1, h3)
	}
	if v, _ := tbl.Get(h2); v != 2 {
		t.Fatalf("Get(h2) = %d", v)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len = %d, want 2", tbl.Len())
	}
}

func TestTable_RemoveIf(t *testing.T) {
	tbl := New[*dropCounter]()
	first := &dropCounter{}
	h, _ := tbl.Insert(first)
	tbl.Remove(h)

	second := &dropCounter{}
	if reused, _ := tbl.Insert(second); reused != h {
		t.Fatalf("expected handle %d to be reused, got %d", h, reused)
	}

	// The slot now holds second; removing it on behalf of first is refused.
	if _, ok := tbl.RemoveIf(h, func(d *dropCounter) bool { return d == first }); ok {
		t.Fatal("RemoveIf removed a reused slot")
	}
	if got, ok := tbl.Get(h); !ok || got != second {
		t.Fatalf("Get = %v, %v", got, ok)
	}

	got, ok := tbl.RemoveIf(h, func(d *dropCounter) bool { return d == second })
	if !ok || got != second {
		t.Fatalf("RemoveIf = %v, %v", got, ok)
	}
	if second.drops != 1 || first.drops != 1 {
		t.Errorf("drops: first %d second %d, want 1 each", first.drops, second.drops)
	}
	if _, ok := tbl.RemoveIf(0, func(*dropCounter) bool { return true }); ok {
		t.Error("RemoveIf(0) succeeded")
	}
}

func TestTable_Observer(t *testing.T) {
	tbl := New[string]()
	obs := &testObserver{}
	tbl.Subscribe(obs)

	h, _ := tbl.Insert("a")
	tbl.Remove(h)

	want := []Event[string]{
		{Type: EventCreated, Handle: h, Value: "a"},
		{Type: EventDropped, Handle: h, Value: "a"},
	}
	if diff := cmp.Diff(want, obs.events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	tbl.Unsubscribe(obs)
	tbl.Insert("b")
	if len(obs.events) != 2 {
		t.Fatalf("unsubscribed observer saw %d events", len(obs.events))
	}
}

func TestTable_CloseDropsRemaining(t *testing.T) {
	tbl := New[*dropCounter]()
	a, b := &dropCounter{}, &dropCounter{}
	tbl.Insert(a)
	hb, _ := tbl.Insert(b)
	tbl.Remove(hb)

	var dropped int
	tbl.Subscribe(ObserverFunc[*dropCounter](func(e Event[*dropCounter]) {
		if e.Type == EventDropped {
			dropped++
		}
	}))

	if err := tbl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if a.drops != 1 || b.drops != 1 {
		t.Fatalf("drops a=%d b=%d, want 1 each", a.drops, b.drops)
	}
	if dropped != 1 {
		t.Fatalf("observer saw %d drops on close, want 1", dropped)
	}
	if _, err := tbl.Insert(&dropCounter{}); err != ErrClosed {
		t.Fatalf("Insert after close: %v, want ErrClosed", err)
	}
	if err := tbl.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestTable_Each(t *testing.T) {
	tbl := New[int]()
	for i := range 5 {
		tbl.Insert(i * 10)
	}

	var got []int
	tbl.Each(func(h Handle, v int) bool {
		got = append(got, v)
		return v < 20
	})
	if diff := cmp.Diff([]int{0, 10, 20}, got); diff != "" {
		t.Fatalf("Each mismatch (-want +got):\n%s", diff)
	}

	// removing from inside the callback is allowed
	tbl.Each(func(h Handle, _ int) bool {
		tbl.Remove(h)
		return true
	})
	if tbl.Len() != 0 {
		t.Fatalf("Len = %d after removing all", tbl.Len())
	}
}

func TestTable_Concurrent(t *testing.T) {
	tbl := New[int]()
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				h, err := tbl.Insert(g*1000 + i)
				if err != nil {
					t.Error(err)
					return
				}
				if v, ok := tbl.Get(h); !ok || v != g*1000+i {
					t.Errorf("Get(%d) = %d, %v", h, v, ok)
				}
				tbl.Remove(h)
			}
		}()
	}
	wg.Wait()
	if tbl.Len() != 0 {
		t.Fatalf("Len = %d, want 0", tbl.Len())
	}
}
