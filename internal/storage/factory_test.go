package storage

import "testing"

func TestNewStoreMemory(t *testing.T) {
	for _, kind := range []string{"memory", " Memory ", ""} {
		store, err := NewStore(kind, "")
		if err != nil {
			t.Fatalf("new memory store %q: %v", kind, err)
		}
		if _, ok := store.(*MemoryStore); !ok {
			t.Fatalf("expected memory store for %q, got %T", kind, store)
		}
		if err := CloseIfSupported(store); err != nil {
			t.Fatalf("close memory store: %v", err)
		}
	}
}

func TestNewStoreDefaultKind(t *testing.T) {
	if DefaultStoreKind() != KindMemory {
		t.Fatalf("unexpected default kind: %s", DefaultStoreKind())
	}
	store, err := NewStore(DefaultStoreKind(), "")
	if err != nil {
		t.Fatalf("new default store: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected memory store by default, got %T", store)
	}
}

func TestNewStoreUnsupported(t *testing.T) {
	if _, err := NewStore("postgres", ""); err == nil {
		t.Fatal("expected unsupported store error")
	}
	if err := CloseIfSupported(nil); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
}
