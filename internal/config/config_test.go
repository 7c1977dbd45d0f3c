package config

import (
	"testing"
	"time"
)

func TestLoadRequiresWSURL(t *testing.T) {
	t.Setenv("DOLJABI_WS_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DOLJABI_WS_URL")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DOLJABI_WS_URL", "ws://localhost:8080/ws")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Game != "omok" || cfg.BoardSize != 0 || cfg.Profile != "default" || cfg.VoiceLocale != "ko" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Tick() != time.Second || cfg.ReconnectDelay() != time.Second {
		t.Fatalf("unexpected durations tick=%v delay=%v", cfg.Tick(), cfg.ReconnectDelay())
	}
	s := cfg.ClockSettings()
	if s.MainTime != 10*time.Minute || s.ByoyomiPeriod != 30*time.Second || s.ByoyomiCount != 3 {
		t.Fatalf("unexpected clock %+v", s)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DOLJABI_WS_URL", "ws://x")
	t.Setenv("DOLJABI_GAME", "BADUK")
	t.Setenv("DOLJABI_BOARD_SIZE", "19")
	t.Setenv("DOLJABI_COLOR", "White")
	t.Setenv("DOLJABI_MAIN_TIME_SEC", "0")
	t.Setenv("DOLJABI_BYOYOMI_COUNT", "nope")
	t.Setenv("DOLJABI_TICK_MS", "0")
	t.Setenv("DOLJABI_PROFILE", "tablet")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Game != "baduk" || cfg.BoardSize != 19 || cfg.Color != "white" || cfg.Profile != "tablet" {
		t.Fatalf("unexpected %+v", cfg)
	}
	if cfg.MainTimeSec != 0 {
		t.Fatalf("zero main time must be accepted")
	}
	if cfg.ByoyomiCount != 3 || cfg.TickMS != 1000 {
		t.Fatalf("invalid values must keep defaults: %+v", cfg)
	}
}

func TestLoadRejectsBadColor(t *testing.T) {
	t.Setenv("DOLJABI_WS_URL", "ws://x")
	t.Setenv("DOLJABI_COLOR", "red")
	if _, err := Load(); err == nil {
		t.Fatalf("expected color error")
	}
}
