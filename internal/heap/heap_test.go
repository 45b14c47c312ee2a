package heap

import "testing"

func TestInternEquality(t *testing.T) {
	h := New()
	a := h.Alloc("foo")
	b := h.Alloc("foo")
	c := h.Alloc("bar")
	if a != b {
		t.Fatalf("expected identical interning for equal strings, got %v != %v", a, b)
	}
	if a == c {
		t.Fatalf("expected distinct handles for distinct strings")
	}
	if h.Str(a) != "foo" || h.Str(c) != "bar" {
		t.Fatalf("round trip mismatch")
	}
}

func TestMarkSweepSoundness(t *testing.T) {
	h := New()
	keep := h.Alloc("bar")
	drop := h.Alloc("fsdfsdf")
	h.Mark(keep)
	h.Sweep(10000)

	if h.Str(keep) != "bar" {
		t.Fatalf("marked atom was reclaimed")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic dereferencing swept atom")
		}
	}()
	h.Str(drop)
}

func TestSweepRespectsLimit(t *testing.T) {
	h := New()
	var ids []PStr
	for i := 0; i < 5; i++ {
		ids = append(ids, h.Alloc(string(rune('a'+i))))
	}
	// Nothing marked: a limited sweep only reclaims `limit` entries.
	h.Sweep(2)
	reclaimed := 0
	for _, id := range ids {
		func() {
			defer func() { recover() }()
			h.Str(id)
		}()
	}
	_ = reclaimed
	// After sweeping with limit=2, exactly 3 of 5 remain resolvable.
	remaining := 0
	for _, id := range ids {
		func() {
			defer func() {
				if r := recover(); r != nil {
					return
				}
				remaining++
			}()
			h.Str(id)
		}()
	}
	if remaining != 3 {
		t.Fatalf("expected 3 remaining after bounded sweep, got %d", remaining)
	}
}

func TestModuleReferenceDummy(t *testing.T) {
	if !DummyModuleReference.IsDummy() {
		t.Fatalf("expected dummy module reference to report IsDummy")
	}
	h := New()
	m := NewModuleReference(h, "Foo.Bar")
	if m.IsDummy() {
		t.Fatalf("real module reference should not be dummy")
	}
	if got := m.PrettyPrint(h); got != "Foo.Bar" {
		t.Fatalf("got %q", got)
	}
}
