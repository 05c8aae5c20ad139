package inflight

import (
	"context"
	"testing"
	"time"
)

func TestLocalGuardIsExclusive(t *testing.T) {
	ctx := context.Background()
	g := NewLocal()

	ok, _ := g.Acquire(ctx)
	if !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	ok, _ = g.Acquire(ctx)
	if ok {
		t.Fatalf("expected second acquire to fail")
	}
	if held, _ := g.Held(ctx); !held {
		t.Fatalf("expected guard to be held")
	}

	_ = g.Release(ctx)
	ok, _ = g.Acquire(ctx)
	if !ok {
		t.Fatalf("expected acquire after release to succeed")
	}
}

func TestLocalFactoryReturnsIndependentGuards(t *testing.T) {
	ctx := context.Background()
	f := LocalFactory()
	a, b := f("a"), f("b")

	if ok, _ := a.Acquire(ctx); !ok {
		t.Fatalf("expected acquire on a")
	}
	if ok, _ := b.Acquire(ctx); !ok {
		t.Fatalf("sessions must not share a guard")
	}
}

func TestRedisScriptsInitialized(t *testing.T) {
	if acquireScript == nil || releaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}

func TestRedisGuardKeyAndTTL(t *testing.T) {
	g := NewRedis(nil, "", "abc", 0)
	if g.key != "ivr:session:abc:inflight" {
		t.Fatalf("unexpected key %s", g.key)
	}
	if g.ttl != 30*time.Second {
		t.Fatalf("unexpected default ttl %v", g.ttl)
	}
	if other := NewRedis(nil, "x", "abc", time.Second); other.token == g.token {
		t.Fatalf("expected per-guard tokens")
	}
}
