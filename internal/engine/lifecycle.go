package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kapu/nodechess/internal/gameclient"
	"github.com/kapu/nodechess/internal/gamestore"
	"github.com/kapu/nodechess/internal/obslog"
)

// Bootstrap seeds the store from the server's full collection. Call after
// Hydrate so a fetch failure still leaves the last known state visible.
func (m *Manager) Bootstrap(ctx context.Context) error {
	games, err := m.api.FetchGames(ctx)
	if err != nil {
		return err
	}
	for _, rec := range games {
		m.store.Merge(ctx, rec)
	}
	obslog.L().Info("bootstrap", zap.Int("games", len(games)))
	return nil
}

// CreateGame opens a game against opponentID and merges the returned record.
// On a conflict where the local collection already holds the game, the view
// just switches to it; every other failure surfaces a per-code notice.
func (m *Manager) CreateGame(ctx context.Context, opponentID string) (*gamestore.GameRecord, error) {
	rec, err := m.api.CreateGame(ctx, opponentID)
	if err == nil {
		m.store.Replace(ctx, *rec)
		m.SetActive(rec.ID)
		obslog.L().Info("game_created", zap.String("game_id", rec.ID))
		return rec, nil
	}

	var apiErr *gameclient.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case 409:
			if local, ok := m.store.Get(opponentID); ok {
				m.SetActive(local.ID)
				obslog.L().Info("game_create_conflict_local", zap.String("game_id", local.ID))
				return &local, nil
			}
			m.notify("create.conflict", map[string]string{"Opponent": opponentID})
		case 503:
			m.notify("create.offline", map[string]string{"Opponent": opponentID})
		case 400:
			m.notify("create.invalid", nil)
		default:
			m.notify("create.generic", nil)
		}
	} else {
		m.notify("create.generic", nil)
	}
	obslog.L().Warn("game_create_failed", zap.String("opponent", opponentID), zap.Error(err))
	return nil, err
}

// Resign terminates the game on the server and merges the ended record. There
// is no optimistic resign: local state only changes on success.
func (m *Manager) Resign(ctx context.Context, gameID string) (*gamestore.GameRecord, error) {
	rec, err := m.api.Resign(ctx, gameID)
	if err != nil {
		m.notify("resign.failed", nil)
		obslog.L().Warn("resign_failed", zap.String("game_id", gameID), zap.Error(err))
		return nil, err
	}
	m.store.Replace(ctx, *rec)
	obslog.L().Info("game_resigned", zap.String("game_id", rec.ID))
	return rec, nil
}

// Rematch opens a fresh game against the same opponent. The server keys games
// by opponent identifier, so the previous game's id doubles as the opponent.
func (m *Manager) Rematch(ctx context.Context, gameID string) (*gamestore.GameRecord, error) {
	rec, err := m.api.CreateGame(ctx, gameID)
	if err != nil {
		m.notify("rematch.failed", nil)
		obslog.L().Warn("rematch_failed", zap.String("game_id", gameID), zap.Error(err))
		return nil, err
	}
	m.store.Replace(ctx, *rec)
	m.SetActive(rec.ID)
	obslog.L().Info("rematch_created", zap.String("game_id", rec.ID))
	return rec, nil
}
