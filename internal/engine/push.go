package engine

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/kapu/nodechess/internal/gamestore"
	"github.com/kapu/nodechess/internal/obslog"
)

// pushKindGameUpdate is the only payload kind the reconciler recognizes.
const pushKindGameUpdate = "game_update"

type pushEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// HandlePush reconciles one push-channel payload into the store. The payload
// is already frame-normalized raw bytes; unknown kinds and malformed payloads
// are logged and dropped, never fatal, and an in-flight local move does not
// gate the merge.
func (m *Manager) HandlePush(payload []byte) {
	var env pushEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		obslog.L().Warn("push_parse_error", zap.Error(err))
		return
	}
	if env.Kind != pushKindGameUpdate {
		obslog.L().Debug("push_drop_kind", zap.String("kind", env.Kind))
		return
	}

	var rec gamestore.GameRecord
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		obslog.L().Warn("push_parse_error", zap.Error(err))
		return
	}
	if rec.ID == "" {
		obslog.L().Warn("push_drop_empty_id")
		return
	}

	accepted := m.store.Merge(context.Background(), rec)
	obslog.L().Info("push_game_update",
		zap.String("game_id", rec.ID),
		zap.Int("turns", rec.Turns),
		zap.Bool("ended", rec.Ended),
		zap.Bool("accepted", accepted),
	)
}
