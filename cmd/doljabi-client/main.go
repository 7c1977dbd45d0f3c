package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/doljabi-session/internal/board"
	"github.com/park285/doljabi-session/internal/channel"
	appcfg "github.com/park285/doljabi-session/internal/config"
	"github.com/park285/doljabi-session/internal/credstore"
	"github.com/park285/doljabi-session/internal/identity"
	"github.com/park285/doljabi-session/internal/msgcat"
	"github.com/park285/doljabi-session/internal/obslog"
	"github.com/park285/doljabi-session/internal/presenter"
	"github.com/park285/doljabi-session/internal/room"
	"github.com/park285/doljabi-session/internal/session"
	"github.com/park285/doljabi-session/internal/voice"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Credential cache is optional; without REDIS_URL the client does not rejoin after restart.
	var store *credstore.Store
	if cfg.RedisURL != "" {
		store, err = credstore.Open(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("credstore_unavailable", zap.Error(err))
			store = nil
		} else {
			defer func() { _ = store.Close() }()
		}
	}

	creds, err := resolveCredentials(ctx, cfg, store)
	if err != nil {
		log.Fatalf("credentials error: %v", err)
	}
	if store != nil {
		if err := store.Save(ctx, cfg.Profile, creds); err != nil {
			logger.Warn("credstore_save_failed", zap.Error(err))
		}
	}

	vocab, err := voice.LoadVocabulary(cfg.VoiceLocale, cfg.VoiceLocaleDir)
	if err != nil {
		log.Fatalf("voice vocabulary error: %v", err)
	}
	resolver, err := voice.NewResolver(vocab, logger)
	if err != nil {
		log.Fatalf("voice resolver error: %v", err)
	}
	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}
	pr := presenter.NewPresenter(presenter.NewFormatter(cat), func(text string) error {
		_, err := fmt.Fprintln(os.Stdout, text)
		return err
	})

	ws := channel.NewWebSocket(channel.Options{
		URL:                  cfg.WSURL,
		SessionKey:           creds.SessionKey,
		RoomCode:             creds.RoomCode,
		MaxReconnectAttempts: cfg.ReconnectMax,
		ReconnectDelay:       cfg.ReconnectDelay(),
		Logger:               logger,
	})

	color := creds.Color
	if c, ok := board.ParseColor(cfg.Color); ok {
		color = c
	}
	size := creds.BoardSize
	if cfg.BoardSize > 0 {
		size = cfg.BoardSize
	}

	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	rm, err := room.Open(cctx, ws, room.Options{
		Session: session.Config{
			RoomCode:   creds.RoomCode,
			LocalColor: color,
			Game:       session.ParseGame(cfg.Game),
			BoardSize:  size,
			Clock:      cfg.ClockSettings(),
			Logger:     logger,
		},
		Tick:     cfg.Tick(),
		Resolver: resolver,
		Logger:   logger,
	})
	cancel()
	if err != nil {
		log.Fatalf("room open error: %v", err)
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rm.Close(cctx); err != nil {
			logger.Warn("room_close_failed", zap.Error(err))
		}
	}()

	var forget forgetter
	if store != nil {
		forget = store
	}
	go relayUpdates(ctx, rm.Updates(), pr, forget, cfg.Profile, logger)
	_ = pr.Screen(rm.View())
	fmt.Println(helpText())

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-rm.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleCommand(rm, pr, line); quit {
				return
			}
		}
	}
}

type forgetter interface {
	Forget(ctx context.Context, profile string) error
}

// relayUpdates presents room updates until the stream closes. Once the game
// has an outcome the cached credentials are dropped so the next launch asks
// for a fresh ticket instead of rejoining a finished room.
func relayUpdates(ctx context.Context, updates <-chan room.Update, pr *presenter.Presenter, store forgetter, profile string, logger *zap.Logger) {
	forgotten := store == nil
	for u := range updates {
		if err := pr.Update(u); err != nil {
			logger.Warn("presenter_write_failed", zap.Error(err))
		}
		if !forgotten && u.View.Outcome != nil {
			forgotten = true
			if err := store.Forget(ctx, profile); err != nil {
				logger.Warn("credstore_forget_failed", zap.Error(err))
			}
		}
	}
}

// resolveCredentials tries the configured pair, then the cache, then the identity service.
func resolveCredentials(ctx context.Context, cfg *appcfg.AppConfig, store *credstore.Store) (identity.Credentials, error) {
	static := identity.Static{SessionKey: cfg.SessionKey, RoomCode: cfg.RoomCode}
	if c, ok := board.ParseColor(cfg.Color); ok {
		static.Color = c
	}
	chain := identity.Chain{static}
	if store != nil {
		chain = append(chain, store.Provider(cfg.Profile))
	}
	if cfg.IdentityBaseURL != "" {
		chain = append(chain, identity.NewHTTPProvider(cfg.IdentityBaseURL, cfg.IdentityTicketPath,
			identity.WithSessionKey(cfg.SessionKey),
			identity.WithTimeout(8*time.Second),
		))
	}
	return chain.Credentials(ctx)
}
