package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/doljabi-session/internal/clock"
)

type AppConfig struct {
	WSURL string

	RoomCode   string
	SessionKey string
	Color      string
	Game       string
	BoardSize  int // 0 means the game's default

	MainTimeSec      int
	ByoyomiSec       int
	ByoyomiCount     int
	IncrementSec     int
	TickMS           int
	ReconnectMax     int
	ReconnectDelayMS int

	RedisURL string
	Profile  string

	IdentityBaseURL    string
	IdentityTicketPath string

	VoiceLocale    string
	VoiceLocaleDir string
	MessagesDir    string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Game:             "omok",
		MainTimeSec:      600,
		ByoyomiSec:       30,
		ByoyomiCount:     3,
		TickMS:           1000,
		ReconnectMax:     5,
		ReconnectDelayMS: 1000,
		Profile:          "default",
		VoiceLocale:      "ko",
	}

	cfg.WSURL = strings.TrimSpace(os.Getenv("DOLJABI_WS_URL"))
	cfg.RoomCode = strings.TrimSpace(os.Getenv("DOLJABI_ROOM_CODE"))
	cfg.SessionKey = strings.TrimSpace(os.Getenv("DOLJABI_SESSION_KEY"))
	cfg.Color = strings.ToLower(strings.TrimSpace(os.Getenv("DOLJABI_COLOR")))

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("DOLJABI_GAME"))); v == "omok" || v == "baduk" {
		cfg.Game = v
	}
	if v := strings.TrimSpace(os.Getenv("DOLJABI_BOARD_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BoardSize = n
		}
	}

	// time control; zero is a valid value for these
	intEnv("DOLJABI_MAIN_TIME_SEC", &cfg.MainTimeSec, 0)
	intEnv("DOLJABI_BYOYOMI_SEC", &cfg.ByoyomiSec, 0)
	intEnv("DOLJABI_BYOYOMI_COUNT", &cfg.ByoyomiCount, 0)
	intEnv("DOLJABI_INCREMENT_SEC", &cfg.IncrementSec, 0)

	intEnv("DOLJABI_TICK_MS", &cfg.TickMS, 1)
	intEnv("DOLJABI_RECONNECT_ATTEMPTS", &cfg.ReconnectMax, 0)
	intEnv("DOLJABI_RECONNECT_DELAY_MS", &cfg.ReconnectDelayMS, 1)

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	if v := strings.TrimSpace(os.Getenv("DOLJABI_PROFILE")); v != "" {
		cfg.Profile = v
	}

	cfg.IdentityBaseURL = strings.TrimSpace(os.Getenv("IDENTITY_BASE_URL"))
	cfg.IdentityTicketPath = strings.TrimSpace(os.Getenv("IDENTITY_TICKET_PATH"))

	if v := strings.TrimSpace(os.Getenv("VOICE_LOCALE")); v != "" {
		cfg.VoiceLocale = v
	}
	cfg.VoiceLocaleDir = strings.TrimSpace(os.Getenv("VOICE_LOCALE_DIR"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if cfg.WSURL == "" {
		return nil, errors.New("DOLJABI_WS_URL is required")
	}
	if cfg.Color != "" && cfg.Color != "black" && cfg.Color != "white" {
		return nil, errors.New("DOLJABI_COLOR must be black or white")
	}

	return cfg, nil
}

// intEnv overwrites *dst when key parses to an int of at least min.
func intEnv(key string, dst *int, min int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil && n >= min {
		*dst = n
	}
}

func (c *AppConfig) ClockSettings() clock.Settings {
	return clock.Settings{
		MainTime:      time.Duration(c.MainTimeSec) * time.Second,
		ByoyomiPeriod: time.Duration(c.ByoyomiSec) * time.Second,
		ByoyomiCount:  c.ByoyomiCount,
		Increment:     time.Duration(c.IncrementSec) * time.Second,
	}
}

func (c *AppConfig) Tick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

func (c *AppConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMS) * time.Millisecond
}
