// Package engine coordinates local optimistic state against the
// server-of-record: moves apply locally first, the server's reply or a pushed
// update supersedes the guess, and confirmed failures roll back.
package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kapu/nodechess/internal/gamestore"
	"github.com/kapu/nodechess/internal/msgcat"
	"github.com/kapu/nodechess/internal/obslog"
	"github.com/kapu/nodechess/internal/position"
)

// API is the server's wire contract as the engine consumes it.
type API interface {
	FetchGames(ctx context.Context) (gamestore.Collection, error)
	CreateGame(ctx context.Context, opponentID string) (*gamestore.GameRecord, error)
	SendMove(ctx context.Context, gameID, move string) (*gamestore.GameRecord, error)
	Resign(ctx context.Context, gameID string) (*gamestore.GameRecord, error)
}

// Notifier receives user-facing notices (alerts in the original UI sense).
type Notifier interface {
	Notify(text string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(string)

func (f NotifierFunc) Notify(text string) { f(text) }

// Manager runs the move, push and lifecycle coordinators over one shared
// store. All server confirmations happen off the calling goroutine; Close
// waits for them.
type Manager struct {
	store    *gamestore.Store
	api      API
	cat      *msgcat.Catalog
	notifier Notifier

	activeMu sync.Mutex
	active   string

	wg sync.WaitGroup
}

func New(store *gamestore.Store, api API, cat *msgcat.Catalog, notifier Notifier) *Manager {
	if notifier == nil {
		notifier = NotifierFunc(func(string) {})
	}
	return &Manager{store: store, api: api, cat: cat, notifier: notifier}
}

// Close waits for in-flight move confirmations to settle.
func (m *Manager) Close() {
	m.wg.Wait()
}

// Active returns the game currently in view, if any.
func (m *Manager) Active() string {
	m.activeMu.Lock()
	defer m.activeMu.Unlock()
	return m.active
}

// SetActive switches the game in view.
func (m *Manager) SetActive(gameID string) {
	m.activeMu.Lock()
	m.active = gameID
	m.activeMu.Unlock()
}

// MoveOption tunes a single move proposal.
type MoveOption func(*moveOptions)

type moveOptions struct {
	promotion position.Promotion
}

// WithPromotion selects the promotion piece when the move promotes a pawn.
// Defaults to queen.
func WithPromotion(p position.Promotion) MoveOption {
	return func(o *moveOptions) { o.promotion = p }
}

// ProposeMove applies actor's move optimistically and schedules the server
// confirmation. It returns true as soon as the local commit lands, before any
// network round-trip. Precondition violations (unknown game, ended game,
// wrong turn, illegal move) are silent no-ops: no mutation, no network call.
func (m *Manager) ProposeMove(ctx context.Context, actor, gameID, from, to string, opts ...MoveOption) bool {
	o := moveOptions{promotion: position.PromoteQueen}
	for _, opt := range opts {
		opt(&o)
	}

	rec, ok := m.store.Get(gameID)
	if !ok || rec.Ended || !rec.IsTurn(actor) {
		obslog.L().Debug("move_rejected_local",
			zap.String("game_id", gameID),
			zap.String("actor", actor),
			zap.Bool("known", ok),
		)
		return false
	}

	next, _, err := position.Apply(rec.Board, from, to, o.promotion)
	if err != nil {
		obslog.L().Debug("move_illegal",
			zap.String("game_id", gameID),
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err),
		)
		return false
	}

	// Optimistic commit: board advances now, turns stays until the server's
	// authoritative record confirms the half-move.
	prev := rec
	optimistic := rec
	optimistic.Board = next
	if !m.store.Merge(ctx, optimistic) {
		obslog.L().Warn("move_optimistic_rejected", zap.String("game_id", gameID))
		return false
	}
	obslog.L().Info("move_optimistic",
		zap.String("game_id", gameID),
		zap.String("actor", actor),
		zap.String("move", from+to),
	)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.confirmMove(prev, optimistic, from+to)
	}()
	return true
}

// confirmMove runs step 3/4 of a proposal: replace the optimistic record with
// the server's, or revert on failure. The revert only lands when the store
// still holds the optimistic record; a fresher push in between wins.
func (m *Manager) confirmMove(prev, optimistic gamestore.GameRecord, move string) {
	ctx := context.Background()
	rec, err := m.api.SendMove(ctx, optimistic.ID, move)
	if err != nil {
		obslog.L().Warn("move_confirm_failed",
			zap.String("game_id", optimistic.ID),
			zap.String("move", move),
			zap.Error(err),
		)
		m.notify("move.failed", nil)
		if !m.store.Revert(ctx, optimistic, prev) {
			obslog.L().Info("move_rollback_skipped", zap.String("game_id", optimistic.ID))
		}
		return
	}

	m.store.Merge(ctx, *rec)
	obslog.L().Info("move_confirmed",
		zap.String("game_id", rec.ID),
		zap.Int("turns", rec.Turns),
		zap.Bool("ended", rec.Ended),
	)
}

// notify renders a catalog key and forwards it to the notifier. A missing
// template falls back to the key itself rather than dropping the alert.
func (m *Manager) notify(key string, data any) {
	text := key
	if m.cat != nil {
		if rendered, err := m.cat.Render(key, data); err == nil {
			text = rendered
		} else {
			obslog.L().Warn("notice_render_error", zap.String("key", key), zap.Error(err))
		}
	}
	m.notifier.Notify(text)
}
