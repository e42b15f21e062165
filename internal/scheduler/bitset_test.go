package scheduler

import "testing"

func TestBitsetFirstFit(t *testing.T) {
	b := All()
	for i := 0; i < 10; i++ {
		b.Clear(i)
	}
	start, ok := b.FirstFit(5)
	if !ok || start != 10 {
		t.Fatalf("FirstFit(5) = (%d, %v), want (10, true)", start, ok)
	}
}

func TestBitsetFirstFitNoRoom(t *testing.T) {
	var b Bitset500 // all zero = fully occupied
	if _, ok := b.FirstFit(1); ok {
		t.Fatal("expected no fit on an empty (all-occupied) bitmap")
	}
}

func TestBitsetAnd(t *testing.T) {
	a := All()
	b := All()
	for i := 0; i < 5; i++ {
		a.Clear(i)
	}
	for i := 3; i < 8; i++ {
		b.Clear(i)
	}
	combined := And(a, b)
	for i := 0; i < 8; i++ {
		if combined.Get(i) {
			t.Errorf("slot %d should be occupied in the AND of a and b", i)
		}
	}
	if !combined.Get(8) {
		t.Errorf("slot 8 should remain free in the AND of a and b")
	}
}

func TestBitsetHexRoundTrip(t *testing.T) {
	b := All()
	b.Clear(0)
	b.Clear(499)
	encoded := b.Hex()
	decoded, err := MaskFromHex(encoded)
	if err != nil {
		t.Fatalf("MaskFromHex: %v", err)
	}
	if decoded != b {
		t.Fatalf("round-tripped bitmap does not match original")
	}
}

func TestNumTimeslots(t *testing.T) {
	cases := []struct {
		durationMs int
		want       int
	}{
		{0, 0}, {100, 1}, {101, 2}, {1000, 10}, {950, 10},
	}
	for _, c := range cases {
		if got := NumTimeslots(c.durationMs); got != c.want {
			t.Errorf("NumTimeslots(%d) = %d, want %d", c.durationMs, got, c.want)
		}
	}
}
