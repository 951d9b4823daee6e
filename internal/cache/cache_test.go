package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/opensource-security/shrike/internal/domain"
)

func TestLRUBasicOperations(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
			t.Fatalf("set failed: %v", err)
		}
		val, err := c.Get(ctx, "k1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if string(val) != "v1" {
			t.Errorf("expected v1, got %s", val)
		}
	})

	t.Run("MissReturnsNilNil", func(t *testing.T) {
		val, err := c.Get(ctx, "missing")
		if err != nil || val != nil {
			t.Errorf("expected nil, nil on miss, got %v, %v", val, err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		c.Set(ctx, "k2", []byte("v2"), time.Minute)
		c.Delete(ctx, "k2")
		val, _ := c.Get(ctx, "k2")
		if val != nil {
			t.Error("deleted key must miss")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		c.Set(ctx, "k3", []byte("old"), time.Minute)
		c.Set(ctx, "k3", []byte("new"), time.Minute)
		val, _ := c.Get(ctx, "k3")
		if string(val) != "new" {
			t.Errorf("expected new, got %s", val)
		}
	})
}

func TestLRUExpiration(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "short", []byte("v"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	val, err := c.Get(ctx, "short")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if val != nil {
		t.Error("expired entry must miss")
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache(3)
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Minute)
	}

	// Touch k0 so k1 becomes the eviction candidate.
	c.Get(ctx, "k0")
	c.Set(ctx, "k3", []byte("v"), time.Minute)

	if val, _ := c.Get(ctx, "k1"); val != nil {
		t.Error("least recently used entry must be evicted")
	}
	if val, _ := c.Get(ctx, "k0"); val == nil {
		t.Error("recently used entry must survive eviction")
	}

	size, capacity := c.Stats()
	if size != 3 || capacity != 3 {
		t.Errorf("expected size 3 cap 3, got %d %d", size, capacity)
	}
}

func TestRegistrationRoundTrip(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	created := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	age := 2400
	rec := &domain.RegistrationRecord{
		Domain:       "example.com",
		Exists:       true,
		CreationDate: &created,
		Registrar:    "Example Registrar LLC",
		AgeDays:      &age,
		Traits: []domain.Trait{
			{Kind: domain.KindSuspiciousRegistrar, Value: "x", Description: "d"},
		},
	}

	if err := c.SetRegistration(ctx, "example.com", rec, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := c.GetRegistration(ctx, "example.com")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected cached record")
	}
	if got.Domain != rec.Domain || !got.Exists || got.Registrar != rec.Registrar {
		t.Errorf("record fields lost in round trip: %+v", got)
	}
	if got.CreationDate == nil || !got.CreationDate.Equal(created) {
		t.Errorf("creation date lost: %v", got.CreationDate)
	}
	if len(got.Traits) != 1 || got.Traits[0].Kind != domain.KindSuspiciousRegistrar {
		t.Errorf("traits lost: %v", got.Traits)
	}

	// Unknown domain misses cleanly.
	got, err = c.GetRegistration(ctx, "other.com")
	if err != nil || got != nil {
		t.Errorf("expected nil, nil on miss, got %v, %v", got, err)
	}
}

func TestNewFactory(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 5})
		if err != nil {
			t.Fatalf("factory failed: %v", err)
		}
		defer c.Close()
		if err := c.Ping(context.Background()); err != nil {
			t.Errorf("ping failed: %v", err)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
			t.Error("expected error for unsupported cache type")
		}
	})
}
