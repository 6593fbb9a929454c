package shm

import (
	"errors"
	"sync"
	"testing"
)

func TestRegionAllocFull(t *testing.T) {
	r := NewRegion(4)
	if off, err := r.Alloc(3); err != nil || off != 0 {
		t.Fatalf("first alloc: off=%d err=%v", off, err)
	}
	if off, err := r.Alloc(1); err != nil || off != 3 {
		t.Fatalf("second alloc: off=%d err=%v", off, err)
	}
	if _, err := r.Alloc(1); !errors.Is(err, ErrRegionFull) {
		t.Fatalf("expected ErrRegionFull, got %v", err)
	}
	if r.ByteLen() != 16 {
		t.Fatalf("expected 16 bytes, got %d", r.ByteLen())
	}
}

func TestCounterReturnsPreviousValue(t *testing.T) {
	c, err := NewCounter(NewRegion(1))
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Increment(); got != 0 {
		t.Fatalf("increment: got %d", got)
	}
	if got := c.Add(5); got != 1 {
		t.Fatalf("add: got %d", got)
	}
	if got := c.Subtract(2); got != 6 {
		t.Fatalf("subtract: got %d", got)
	}
	if got := c.Decrement(); got != 4 {
		t.Fatalf("decrement: got %d", got)
	}
	if c.Load() != 3 {
		t.Fatalf("expected 3, got %d", c.Load())
	}
}

func TestCounterConcurrentAdds(t *testing.T) {
	c, _ := NewCounter(NewRegion(1))
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				c.Increment()
			}
		}()
	}
	wg.Wait()
	if c.Load() != 8000 {
		t.Fatalf("expected 8000, got %d", c.Load())
	}
}

func TestCellStoreMax(t *testing.T) {
	c, _ := NewCell(NewRegion(1))
	if !c.StoreMax(4) {
		t.Fatal("expected store of 4")
	}
	if c.StoreMax(3) {
		t.Fatal("lower value must not overwrite")
	}
	if c.Load() != 4 {
		t.Fatalf("expected 4, got %d", c.Load())
	}
	c.Store(1)
	if c.Load() != 1 {
		t.Fatalf("plain store should win, got %d", c.Load())
	}
}

func TestLayoutVectorField(t *testing.T) {
	fields := []Field{
		{Name: "position", Kind: KindF32, Elements: 3},
		{Name: "flags", Kind: KindU32},
	}
	r := NewRegion(WordsFor(8, fields))
	stores, err := Layout(r, 8, fields)
	if err != nil {
		t.Fatal(err)
	}
	if r.Used() != r.Cap() {
		t.Fatalf("layout used %d of %d words", r.Used(), r.Cap())
	}
	pos := stores[0]
	pos.SetFloat32(2, 0, 1.5)
	pos.SetFloat32(2, 2, -3)
	if pos.Float32(2, 0) != 1.5 || pos.Float32(2, 1) != 0 || pos.Float32(2, 2) != -3 {
		t.Fatalf("unexpected slot %v %v %v", pos.Float32(2, 0), pos.Float32(2, 1), pos.Float32(2, 2))
	}
	if pos.Float32(3, 0) != 0 {
		t.Fatal("neighbouring slot was written")
	}
	pos.Zero(2)
	if pos.Get(2, 0) != 0 || pos.Get(2, 2) != 0 {
		t.Fatal("zero left data behind")
	}
	stores[1].SetInt32(7, 0, -1)
	if stores[1].Int32(7, 0) != -1 {
		t.Fatalf("i32 roundtrip: %d", stores[1].Int32(7, 0))
	}
}

func TestLayoutRejectsDuplicates(t *testing.T) {
	fields := []Field{{Name: "a", Kind: KindU32}, {Name: "a", Kind: KindF32}}
	_, err := Layout(NewRegion(16), 4, fields)
	if !errors.Is(err, ErrDuplicateField) {
		t.Fatalf("expected ErrDuplicateField, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"f32", KindF32, true},
		{"uint32", KindU32, true},
		{"i32", KindI32, true},
		{"f64", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err == nil) != tt.ok || (tt.ok && got != tt.want) {
			t.Errorf("ParseKind(%q) = %v, %v", tt.in, got, err)
		}
	}
}
