package catalog

import (
	"context"
	"sync"
	"testing"
)

func newTestBook(t *testing.T, svc *Service, stock int) *Book {
	t.Helper()
	book, err := svc.Create(context.Background(), CreateRequest{
		Title:  "The Go Programming Language",
		Author: "Donovan & Kernighan",
		Price:  1499,
		Stock:  stock,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return book
}

func TestCreate(t *testing.T) {
	svc := NewService(NewMemoryStore())

	book := newTestBook(t, svc, 10)
	if book.ID == "" {
		t.Error("book ID not assigned")
	}
	if book.ReorderPoint != DefaultReorderPoint {
		t.Errorf("reorder point = %d, want default %d", book.ReorderPoint, DefaultReorderPoint)
	}

	got, err := svc.Get(context.Background(), book.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != book.Title || got.Stock != 10 {
		t.Errorf("got %+v", got)
	}
}

func TestCreate_Invalid(t *testing.T) {
	svc := NewService(NewMemoryStore())

	if _, err := svc.Create(context.Background(), CreateRequest{Title: "t", Author: "a", Price: 0}); err == nil {
		t.Error("zero price accepted")
	}
	if _, err := svc.Create(context.Background(), CreateRequest{Title: "t", Author: "a", Price: 10, Stock: -1}); err == nil {
		t.Error("negative stock accepted")
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(NewMemoryStore())

	if _, err := svc.Get(context.Background(), "bk_missing"); err != ErrBookNotFound {
		t.Errorf("err = %v, want ErrBookNotFound", err)
	}
}

func TestDecrementStock(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	book := newTestBook(t, svc, 3)

	ok, err := store.DecrementStock(context.Background(), book.ID, 2)
	if err != nil || !ok {
		t.Fatalf("DecrementStock = %v, %v; want true", ok, err)
	}

	// Only 1 left; a decrement of 2 must fail without changing stock.
	ok, err = store.DecrementStock(context.Background(), book.ID, 2)
	if err != nil {
		t.Fatalf("DecrementStock error: %v", err)
	}
	if ok {
		t.Fatal("decrement beyond stock succeeded")
	}

	got, _ := svc.Get(context.Background(), book.ID)
	if got.Stock != 1 {
		t.Errorf("stock = %d, want 1", got.Stock)
	}
}

func TestDecrementStock_Concurrent(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	book := newTestBook(t, svc, 1)

	const attempts = 10
	var wg sync.WaitGroup
	successes := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.DecrementStock(context.Background(), book.ID, 1)
			if err != nil {
				t.Errorf("DecrementStock error: %v", err)
				return
			}
			if ok {
				successes <- true
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	if count != 1 {
		t.Errorf("%d decrements succeeded on stock 1, want exactly 1", count)
	}
}

func TestDecrementStock_UnknownBook(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.DecrementStock(context.Background(), "bk_missing", 1); err != ErrBookNotFound {
		t.Errorf("err = %v, want ErrBookNotFound", err)
	}
}

func TestAddSales(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	book := newTestBook(t, svc, 10)

	if err := store.AddSales(context.Background(), book.ID, 2, 2998); err != nil {
		t.Fatalf("AddSales failed: %v", err)
	}
	if err := store.AddSales(context.Background(), book.ID, 1, 1499); err != nil {
		t.Fatalf("AddSales failed: %v", err)
	}

	got, _ := svc.Get(context.Background(), book.ID)
	if got.Sales != 3 {
		t.Errorf("sales = %d, want 3", got.Sales)
	}
	if got.Revenue != 4497 {
		t.Errorf("revenue = %v, want 4497", got.Revenue)
	}
}

func TestLowStock(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)

	low := newTestBook(t, svc, 2)   // below default reorder point 5
	_ = newTestBook(t, svc, 50)     // healthy
	atPoint := newTestBook(t, svc, DefaultReorderPoint)

	books, err := svc.LowStock(context.Background(), 10)
	if err != nil {
		t.Fatalf("LowStock failed: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("len = %d, want 2 (ids %s, %s)", len(books), low.ID, atPoint.ID)
	}
	for _, b := range books {
		if !b.NeedsReorder() {
			t.Errorf("book %s returned but does not need reorder", b.ID)
		}
	}
}

func TestNeedsReorder(t *testing.T) {
	tests := []struct {
		stock   int
		reorder int
		want    bool
	}{
		{0, 5, true},
		{5, 5, true},
		{6, 5, false},
		{100, 5, false},
	}

	for _, tc := range tests {
		b := &Book{Stock: tc.stock, ReorderPoint: tc.reorder}
		if got := b.NeedsReorder(); got != tc.want {
			t.Errorf("NeedsReorder(stock=%d, reorder=%d) = %v, want %v",
				tc.stock, tc.reorder, got, tc.want)
		}
	}
}
