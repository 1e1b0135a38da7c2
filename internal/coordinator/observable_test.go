package coordinator

import "testing"

func TestObservableReplaysCurrentOnSubscribe(t *testing.T) {
	o := NewObservable[int]()
	o.Set(7)
	var got []int
	unsub := o.Subscribe(func(v int) { got = append(got, v) })
	defer unsub()
	if len(got) != 1 || got[0] != 7 {
		t.Fatalf("expected replay of 7, got %v", got)
	}
}

func TestObservableNotifiesOnSet(t *testing.T) {
	o := NewObservable[string]()
	var got []string
	unsub := o.Subscribe(func(v string) { got = append(got, v) })
	defer unsub()
	o.Set("a")
	o.Set("b")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b], got %v", got)
	}
}

func TestObservableUnsubscribeStopsDelivery(t *testing.T) {
	o := NewObservable[int]()
	var got []int
	unsub := o.Subscribe(func(v int) { got = append(got, v) })
	o.Set(1)
	unsub()
	o.Set(2)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected only [1], got %v", got)
	}
}

func TestObservableNoReplayBeforeFirstSet(t *testing.T) {
	o := NewObservable[int]()
	calls := 0
	unsub := o.Subscribe(func(int) { calls++ })
	defer unsub()
	if calls != 0 {
		t.Fatalf("expected no replay before first Set, got %d calls", calls)
	}
	if _, ok := o.Get(); ok {
		t.Fatalf("Get reported a value before first Set")
	}
}
