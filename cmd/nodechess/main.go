package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appcfg "github.com/kapu/nodechess/internal/config"
	"github.com/kapu/nodechess/internal/engine"
	"github.com/kapu/nodechess/internal/gameclient"
	"github.com/kapu/nodechess/internal/gamestore"
	"github.com/kapu/nodechess/internal/msgcat"
	"github.com/kapu/nodechess/internal/obslog"
	"github.com/kapu/nodechess/internal/pushchan"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	cat, err := msgcat.New(cfg.MsgTemplateDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	ctx := context.Background()

	var persist gamestore.Persister
	var redisPersist *gamestore.RedisPersister
	if cfg.RedisURL != "" {
		redisPersist, err = gamestore.NewRedisPersisterURL(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis persister error: %v", err)
		}
		persist = redisPersist
	} else {
		persist = gamestore.NewFilePersister(cfg.StateFile)
	}

	store := gamestore.New(persist, gamestore.WithPolicy(gamestore.PolicyByName(cfg.MergePolicy)))
	// Hydrate before any network call: last known state shows even offline.
	if err := store.Hydrate(ctx); err != nil {
		obslog.L().Warn("hydrate_failed", zap.Error(err))
	}

	clientID := uuid.NewString()
	headers := func() map[string]string {
		return map[string]string{
			"X-Node-Id":   cfg.NodeID,
			"X-Client-Id": clientID,
		}
	}

	api := gameclient.NewClient(cfg.ServerBaseURL, gameclient.WithHeaderProvider(headers))

	notifier := engine.NotifierFunc(func(text string) {
		obslog.L().Warn("user_notice", zap.String("text", text))
	})
	eng := engine.New(store, api, cat, notifier)

	store.OnChange(func(rec gamestore.GameRecord) {
		obslog.L().Debug("store_update",
			zap.String("game_id", rec.ID),
			zap.Int("turns", rec.Turns),
			zap.Bool("ended", rec.Ended),
		)
	})

	if err := eng.Bootstrap(ctx); err != nil {
		obslog.L().Warn("bootstrap_failed", zap.Error(err))
	}

	ws := pushchan.NewWebSocket(cfg.ServerWSURL, 5, time.Second)
	ws.SetHeaderProvider(pushchan.HeaderProvider(headers))
	ws.OnStateChange(func(state pushchan.State) {
		obslog.L().Info("push_channel_state", zap.String("state", string(state)))
	})
	ws.OnFrame(func(f pushchan.Frame) {
		eng.HandlePush(f.Data)
	})

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := ws.Connect(cctx); err != nil {
		obslog.L().Warn("push_connect_failed", zap.Error(err))
	}
	cancel()

	obslog.L().Info("nodechess_started",
		zap.String("node_id", cfg.NodeID),
		zap.String("client_id", clientID),
		zap.Int("games", store.Len()),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	_ = ws.Close(context.Background())
	eng.Close()
	if redisPersist != nil {
		_ = redisPersist.Close()
	}
}
