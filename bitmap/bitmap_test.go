package bitmap

import "testing"

func TestSetGet(t *testing.T) {
	bm := New(1024)
	if err := bm.Set(3, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bm.Get(3) {
		t.Fatalf("expected bit 3 to be set")
	}
	if err := bm.Set(3, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bm.Get(3) {
		t.Fatalf("expected bit 3 to be clear")
	}
}

func TestSetGetAcrossWords(t *testing.T) {
	bm := New(1024)
	if err := bm.Set(342, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bm.Get(342) {
		t.Fatalf("expected bit 342 to be set")
	}
}

func TestSetOutOfRange(t *testing.T) {
	bm := New(64)
	if err := bm.Set(64, true); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	if err := bm.Set(-1, true); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestSetAll(t *testing.T) {
	bm := New(1024)
	bm.SetAll(true)
	for i := 0; i < bm.Len(); i++ {
		if !bm.Get(i) {
			t.Fatalf("expected bit %d to be set", i)
		}
	}
	bm.SetAll(false)
	for i := 0; i < bm.Len(); i++ {
		if bm.Get(i) {
			t.Fatalf("expected bit %d to be clear", i)
		}
	}
}

func TestCountOnesAndZeros(t *testing.T) {
	bm := New(1024)
	for _, idx := range []int{0, 1, 8, 9} {
		if err := bm.Set(idx, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := bm.CountOnes(); got != 4 {
		t.Fatalf("expected 4 ones, got %d", got)
	}
	if got := bm.CountZeros(); got != 1020 {
		t.Fatalf("expected 1020 zeros, got %d", got)
	}
}

func TestCountZerosUpTo(t *testing.T) {
	bm := New(128)
	for _, idx := range []int{0, 1, 8, 9} {
		if err := bm.Set(idx, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	got, err := bm.CountZerosUpTo(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 6 {
		t.Fatalf("expected 6 zeros below index 10, got %d", got)
	}
	if _, err := bm.CountZerosUpTo(1000); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestFindFirstZero(t *testing.T) {
	bm := New(1024)
	idx, ok := bm.FindFirstZero()
	if !ok || idx != 0 {
		t.Fatalf("expected first free bit at 0, got %d,%v", idx, ok)
	}

	for i := 0; i < 125; i++ {
		if err := bm.Set(i, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	idx, ok = bm.FindFirstZero()
	if !ok || idx != 125 {
		t.Fatalf("expected first free bit at 125, got %d,%v", idx, ok)
	}

	bm.SetAll(true)
	if _, ok := bm.FindFirstZero(); ok {
		t.Fatalf("expected no free bit in a saturated bitmap")
	}
}

func TestFindFirstZeroUpToRespectsLimit(t *testing.T) {
	bm := New(128)
	// set every bit below 64 and leave bit 64 onward clear
	for i := 0; i < 64; i++ {
		_ = bm.Set(i, true)
	}
	if idx, ok := bm.FindFirstZeroUpTo(64); ok {
		t.Fatalf("expected no free bit below limit 64, got %d", idx)
	}
	if idx, ok := bm.FindFirstZeroUpTo(128); !ok || idx != 64 {
		t.Fatalf("expected free bit at 64, got %d,%v", idx, ok)
	}
}

func TestToFromBytes(t *testing.T) {
	bm := New(1024)
	for _, idx := range []int{0, 1, 8, 9} {
		if err := bm.Set(idx, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	b := bm.Bytes()
	comp := make([]byte, 1024/8)
	comp[0] = 0b11
	comp[1] = 0b11

	if string(b) != string(comp) {
		t.Fatalf("unexpected byte serialization: %x vs %x", b, comp)
	}

	roundtrip := FromBytes(comp)
	for i := 0; i < bm.Len(); i++ {
		if bm.Get(i) != roundtrip.Get(i) {
			t.Fatalf("roundtrip mismatch at bit %d", i)
		}
	}
}
