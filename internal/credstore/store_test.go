package credstore

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/doljabi-session/internal/board"
	"github.com/park285/doljabi-session/internal/identity"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb), mr
}

func TestSaveLoadForget(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.Load(ctx, "p1"); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}
	want := identity.Credentials{SessionKey: "sk", RoomCode: "ROOM1", Color: board.White, BoardSize: 19}
	if err := s.Save(ctx, "p1", want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ttl := mr.TTL("doljabi:last:p1"); ttl != 24*time.Hour {
		t.Fatalf("expected 24h ttl, got %v", ttl)
	}
	got, ok, err := s.Load(ctx, "p1")
	if err != nil || !ok || got != want {
		t.Fatalf("Load: %+v ok=%v err=%v", got, ok, err)
	}
	if err := s.Forget(ctx, "p1"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if _, ok, _ := s.Load(ctx, "p1"); ok {
		t.Fatalf("expected cache miss after Forget")
	}
}

func TestExpiredEntryIsMiss(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	_ = s.Save(ctx, "", identity.Credentials{SessionKey: "sk", RoomCode: "R"})
	mr.FastForward(25 * time.Hour)
	if _, ok, err := s.Load(ctx, ""); err != nil || ok {
		t.Fatalf("expired entry: ok=%v err=%v", ok, err)
	}
}

func TestSaveRejectsIncomplete(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Save(context.Background(), "p", identity.Credentials{RoomCode: "R"}); !errors.Is(err, identity.ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestProviderInChain(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	chain := identity.Chain{s.Provider("p"), identity.Static{SessionKey: "fallback", RoomCode: "F"}}
	c, err := chain.Credentials(ctx)
	if err != nil || c.SessionKey != "fallback" {
		t.Fatalf("expected fallback on miss, got %+v %v", c, err)
	}
	_ = s.Save(ctx, "p", identity.Credentials{SessionKey: "cached", RoomCode: "C"})
	c, err = chain.Credentials(ctx)
	if err != nil || c.SessionKey != "cached" {
		t.Fatalf("expected cached credentials, got %+v %v", c, err)
	}
}

func TestOpenRequiresURL(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatalf("expected error")
	}
	_, mr := newTestStore(t)
	s, err := Open(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = s.Close()
}
