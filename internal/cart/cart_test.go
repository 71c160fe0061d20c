package cart

import (
	"math"
	"testing"

	"cartsync/internal/localstore"
	"cartsync/internal/model"
)

func newTestStore(t *testing.T) (*Store, *localstore.Store) {
	t.Helper()
	local := localstore.New(localstore.NewMemoryBackend(), nil)
	s := New(local, nil)
	s.Hydrate()
	return s, local
}

func tee(size string) model.ItemInput {
	return model.ItemInput{ProductID: "tee", Size: size, PriceCents: 2000, Name: "Tee", Image: "tee.jpg"}
}

func TestAddItem_NewLine(t *testing.T) {
	s, _ := newTestStore(t)

	s.AddItem(tee("M"), 2)

	items := s.Items()
	if len(items) != 1 {
		t.Fatalf("len = %d, want 1", len(items))
	}
	if items[0].Qty != 2 {
		t.Errorf("Qty = %d, want 2", items[0].Qty)
	}
	if items[0].ID != model.NewLineID("tee", "M", "") {
		t.Errorf("ID = %q", items[0].ID)
	}
	if items[0].PriceCents != 2000 || items[0].Name != "Tee" {
		t.Errorf("snapshot fields = %+v", items[0])
	}
}

func TestAddItem_IncrementsExisting(t *testing.T) {
	s, _ := newTestStore(t)

	s.AddItem(tee("M"), 2)
	s.AddItem(tee("M"), 3)

	items := s.Items()
	if len(items) != 1 {
		t.Fatalf("len = %d, want 1", len(items))
	}
	if items[0].Qty != 5 {
		t.Errorf("Qty = %d, want 5", items[0].Qty)
	}
}

func TestAddItem_Clamps(t *testing.T) {
	tests := []struct {
		name  string
		first int
		then  int
		want  int
	}{
		{"cap on increment", 98, 5, 99},
		{"huge increment", 5, math.MaxInt, 99},
		{"huge new line", math.MaxInt, 0, 99},
		{"cap on new line", 150, 0, 99},
		{"zero counts as one", 0, 0, 1},
		{"negative counts as one", -4, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			s.AddItem(tee("M"), tt.first)
			if tt.then > 0 {
				s.AddItem(tee("M"), tt.then)
			}
			if got := s.Items()[0].Qty; got != tt.want {
				t.Errorf("Qty = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAddItem_DistinctIdentity(t *testing.T) {
	s, _ := newTestStore(t)

	s.AddItem(tee("M"), 1)
	s.AddItem(tee("L"), 1)
	custom := tee("M")
	custom.CustomKey = "mono:AB"
	s.AddItem(custom, 1)

	if got := len(s.Items()); got != 3 {
		t.Errorf("len = %d, want 3", got)
	}
}

func TestUpdateQty(t *testing.T) {
	tests := []struct {
		qty  int
		want int
	}{
		{5, 5},
		{0, 1},
		{-3, 1},
		{100, 99},
	}

	for _, tt := range tests {
		s, _ := newTestStore(t)
		s.AddItem(tee("M"), 2)
		s.UpdateQty(model.NewLineID("tee", "M", ""), tt.qty)
		if got := s.Items()[0].Qty; got != tt.want {
			t.Errorf("UpdateQty(%d) = %d, want %d", tt.qty, got, tt.want)
		}
	}
}

func TestUpdateQty_UnknownIsNoop(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddItem(tee("M"), 2)

	calls := 0
	s.Subscribe(func([]model.CartLine) { calls++ })
	s.UpdateQty(model.NewLineID("nope", "", ""), 5)

	if calls != 0 {
		t.Errorf("notifications = %d, want 0", calls)
	}
	if got := s.Items()[0].Qty; got != 2 {
		t.Errorf("Qty = %d, want 2", got)
	}
}

func TestRemoveItem(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddItem(tee("S"), 1)
	s.AddItem(tee("M"), 1)
	s.AddItem(tee("L"), 1)

	s.RemoveItem(model.NewLineID("tee", "M", ""))
	s.RemoveItem(model.NewLineID("absent", "", ""))

	items := s.Items()
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Size != "S" || items[1].Size != "L" {
		t.Errorf("order = %s,%s, want S,L", items[0].Size, items[1].Size)
	}
}

func TestClear(t *testing.T) {
	s, local := newTestStore(t)
	s.AddItem(tee("M"), 1)

	s.Clear()

	if got := len(s.Items()); got != 0 {
		t.Errorf("len = %d, want 0", got)
	}
	var stored []model.CartLine
	if !local.Load(localstore.CartKey, &stored) {
		t.Fatal("cleared cart not persisted")
	}
	if len(stored) != 0 {
		t.Errorf("stored = %d lines, want 0", len(stored))
	}
}

func TestTotals(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddItem(model.ItemInput{ProductID: "a", PriceCents: 1999}, 2)
	s.AddItem(model.ItemInput{ProductID: "b", PriceCents: 500}, 3)

	if got := s.SubtotalCents(); got != 5498 {
		t.Errorf("SubtotalCents = %d, want 5498", got)
	}
	if got := s.Subtotal(); got != 54.98 {
		t.Errorf("Subtotal = %v, want 54.98", got)
	}
	if got := s.TotalQuantity(); got != 5 {
		t.Errorf("TotalQuantity = %d, want 5", got)
	}
}

func TestPersistsEveryChange(t *testing.T) {
	s, local := newTestStore(t)

	s.AddItem(tee("M"), 2)
	s.UpdateQty(model.NewLineID("tee", "M", ""), 7)

	var stored []model.CartLine
	if !local.Load(localstore.CartKey, &stored) {
		t.Fatal("nothing persisted")
	}
	if len(stored) != 1 || stored[0].Qty != 7 {
		t.Errorf("stored = %+v, want one line with qty 7", stored)
	}
}

func TestHydrate(t *testing.T) {
	local := localstore.New(localstore.NewMemoryBackend(), nil)
	local.Save(localstore.CartKey, []model.CartLine{
		{ID: model.NewLineID("tee", "M", ""), ProductID: "tee", Size: "M", Qty: 3, PriceCents: 2000},
	})

	s := New(local, nil)
	if s.Hydrated() {
		t.Fatal("Hydrated before Hydrate")
	}
	if len(s.Items()) != 0 {
		t.Fatal("cart not empty before Hydrate")
	}

	s.Hydrate()

	if !s.Hydrated() {
		t.Error("Hydrated = false after Hydrate")
	}
	items := s.Items()
	if len(items) != 1 || items[0].Qty != 3 {
		t.Errorf("Items = %+v", items)
	}
}

func TestHydrate_RunsOnce(t *testing.T) {
	local := localstore.New(localstore.NewMemoryBackend(), nil)
	local.Save(localstore.CartKey, []model.CartLine{{ProductID: "a", Qty: 1}})

	s := New(local, nil)
	s.Hydrate()
	s.Clear()
	s.Hydrate()

	if got := len(s.Items()); got != 0 {
		t.Errorf("second Hydrate reloaded %d lines", got)
	}
}

func TestHydrate_SanitizesStoredLines(t *testing.T) {
	local := localstore.New(localstore.NewMemoryBackend(), nil)
	local.Save(localstore.CartKey, []model.CartLine{
		{ProductID: "a", Size: "M", Qty: 500},
		{ProductID: "a", Size: "M", Qty: 1},
		{ProductID: "b", Qty: 0, PriceCents: -10},
	})

	s := New(local, nil)
	s.Hydrate()

	items := s.Items()
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Qty != 99 || items[0].ID != model.NewLineID("a", "M", "") {
		t.Errorf("first = %+v", items[0])
	}
	if items[1].Qty != 1 || items[1].PriceCents != 0 {
		t.Errorf("second = %+v", items[1])
	}
}

func TestNotPersistedBeforeHydrate(t *testing.T) {
	local := localstore.New(localstore.NewMemoryBackend(), nil)
	s := New(local, nil)

	s.AddItem(tee("M"), 1)

	var stored []model.CartLine
	if local.Load(localstore.CartKey, &stored) {
		t.Error("cart persisted before hydration")
	}
}

func TestCorruptStoredValueIgnored(t *testing.T) {
	backend := localstore.NewMemoryBackend()
	if err := backend.Set(localstore.CartKey.String(), []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	s := New(localstore.New(backend, nil), nil)

	s.Hydrate()

	if !s.Hydrated() {
		t.Error("Hydrated = false")
	}
	if got := len(s.Items()); got != 0 {
		t.Errorf("len = %d, want 0", got)
	}
}

func TestReplace(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddItem(tee("M"), 1)

	s.Replace(model.FromRemoteLines([]model.RemoteLine{
		{ProductID: "x", Size: "L", Qty: 2, PriceCents: 100},
	}))

	items := s.Items()
	if len(items) != 1 || items[0].ProductID != "x" || items[0].Qty != 2 {
		t.Errorf("Items = %+v", items)
	}
}

func TestReset(t *testing.T) {
	s, local := newTestStore(t)
	s.AddItem(tee("M"), 1)

	notified := -1
	s.Subscribe(func(lines []model.CartLine) { notified = len(lines) })
	s.Reset()

	if got := len(s.Items()); got != 0 {
		t.Errorf("len = %d, want 0", got)
	}
	var stored []model.CartLine
	if local.Load(localstore.CartKey, &stored) {
		t.Error("key still present after Reset")
	}
	if notified != 0 {
		t.Errorf("notified with %d lines, want 0", notified)
	}
}

func TestSubscribe(t *testing.T) {
	s, _ := newTestStore(t)

	var seen []int
	unsubscribe := s.Subscribe(func(lines []model.CartLine) {
		total := 0
		for _, l := range lines {
			total += l.Qty
		}
		seen = append(seen, total)
	})

	s.AddItem(tee("M"), 1)
	s.AddItem(tee("M"), 2)
	unsubscribe()
	s.AddItem(tee("M"), 4)

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 3 {
		t.Errorf("seen = %v, want [1 3]", seen)
	}
}

func TestItemsReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddItem(tee("M"), 1)

	items := s.Items()
	items[0].Qty = 50

	if got := s.Items()[0].Qty; got != 1 {
		t.Errorf("store mutated through Items() copy: qty = %d", got)
	}
}
