package pool

import "testing"

type box struct{ items []int }

func TestObtainCreatesWhenEmpty(t *testing.T) {
	created := 0
	p := New(func() *box { created++; return &box{} }, nil)
	a := p.Obtain()
	b := p.Obtain()
	if a == b {
		t.Fatal("expected distinct items")
	}
	if created != 2 {
		t.Fatalf("expected 2 creates, got %d", created)
	}
}

func TestReleaseDisposesAndReuses(t *testing.T) {
	created := 0
	p := New(
		func() *box { created++; return &box{} },
		func(b *box) { b.items = b.items[:0] },
	)
	a := p.Obtain()
	a.items = append(a.items, 1, 2, 3)
	p.Release(a)
	if p.Free() != 1 {
		t.Fatalf("expected 1 free, got %d", p.Free())
	}
	if len(a.items) != 0 {
		t.Fatalf("dispose not applied: %v", a.items)
	}
	b := p.Obtain()
	if b != a {
		t.Fatal("expected released item to be reused")
	}
	if created != 1 || p.Free() != 0 {
		t.Fatalf("created=%d free=%d", created, p.Free())
	}
}

func TestObtainIsLIFO(t *testing.T) {
	p := New(func() *box { return &box{} }, nil)
	a, b := p.Obtain(), p.Obtain()
	p.Release(a)
	p.Release(b)
	if p.Obtain() != b || p.Obtain() != a {
		t.Fatal("expected last released first")
	}
}
