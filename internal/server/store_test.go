package server

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "items.db")
	s, err := OpenStore(path, quietLogger())
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	sqlStore, ok := s.(*SQLStore)
	if !ok {
		t.Fatalf("OpenStore(%q) returned %T, want *SQLStore", path, s)
	}
	return sqlStore
}

// testStoreContract exercises the behavior every Store must share.
func testStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("EmptyList", func(t *testing.T) {
		items, err := s.ListItems(ctx)
		if err != nil {
			t.Fatalf("ListItems failed: %v", err)
		}
		if items == nil {
			t.Error("ListItems returned nil slice, want empty")
		}
		if len(items) != 0 {
			t.Errorf("len(items) = %d, want 0", len(items))
		}
	})

	t.Run("CreateThenGet", func(t *testing.T) {
		created, err := s.CreateItem(ctx, "widget", 3, 9.99)
		if err != nil {
			t.Fatalf("CreateItem failed: %v", err)
		}
		if created.ID == "" {
			t.Fatal("CreateItem returned empty ID")
		}
		if _, err := time.Parse(time.RFC3339Nano, created.CreatedAt); err != nil {
			t.Errorf("CreatedAt %q is not RFC3339: %v", created.CreatedAt, err)
		}

		got, err := s.GetItem(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetItem failed: %v", err)
		}
		if *got != *created {
			t.Errorf("GetItem = %+v, want %+v", *got, *created)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := s.GetItem(ctx, "does-not-exist")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("GetItem err = %v, want ErrNotFound", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		created, err := s.CreateItem(ctx, "doomed", 1, 0.5)
		if err != nil {
			t.Fatalf("CreateItem failed: %v", err)
		}

		existed, err := s.DeleteItem(ctx, created.ID)
		if err != nil {
			t.Fatalf("DeleteItem failed: %v", err)
		}
		if !existed {
			t.Error("DeleteItem reported missing row for existing id")
		}

		existed, err = s.DeleteItem(ctx, created.ID)
		if err != nil {
			t.Fatalf("second DeleteItem failed: %v", err)
		}
		if existed {
			t.Error("second DeleteItem reported an existing row")
		}

		if _, err := s.GetItem(ctx, created.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetItem after delete err = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListAfterCreates", func(t *testing.T) {
		before, err := s.ListItems(ctx)
		if err != nil {
			t.Fatalf("ListItems failed: %v", err)
		}

		want := map[string]bool{}
		for i := 0; i < 5; i++ {
			it, err := s.CreateItem(ctx, "bulk", int64(i), float64(i)*1.5)
			if err != nil {
				t.Fatalf("CreateItem failed: %v", err)
			}
			want[it.ID] = true
		}

		after, err := s.ListItems(ctx)
		if err != nil {
			t.Fatalf("ListItems failed: %v", err)
		}
		if len(after) != len(before)+5 {
			t.Fatalf("len(items) = %d, want %d", len(after), len(before)+5)
		}
		for _, it := range after {
			delete(want, it.ID)
		}
		if len(want) != 0 {
			t.Errorf("created items missing from list: %v", want)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestSQLStore_SQLite(t *testing.T) {
	s := newTestSQLStore(t)
	testStoreContract(t, s)

	if inUse := s.DB.Stats().InUse; inUse != 0 {
		t.Errorf("connections in use after store calls = %d, want 0", inUse)
	}
}

func TestSQLStore_Postgres(t *testing.T) {
	dsn := os.Getenv("STOCKROOM_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("STOCKROOM_TEST_POSTGRES not set")
	}
	s, err := OpenStore(dsn, quietLogger())
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer s.Close()

	sqlStore := s.(*SQLStore)
	if _, err := sqlStore.DB.Exec(`DELETE FROM items`); err != nil {
		t.Fatalf("truncate items: %v", err)
	}
	testStoreContract(t, s)
}

func TestSQLStore_ClosedDB(t *testing.T) {
	s := newTestSQLStore(t)
	s.DB.Close()

	if _, err := s.ListItems(context.Background()); err == nil {
		t.Error("ListItems on closed DB expected error, got nil")
	}
	if _, err := s.GetItem(context.Background(), "x"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("GetItem on closed DB err = %v, want storage error", err)
	}
}

func TestOpenStore_Memory(t *testing.T) {
	s, err := OpenStore(":memory:", quietLogger())
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("OpenStore(:memory:) returned %T, want *MemoryStore", s)
	}
}
