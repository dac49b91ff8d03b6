package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// MergePolicyLWW keeps the store's historical unconditional overwrite;
// MergePolicyNewer only accepts records that advance the turn counter.
const (
	MergePolicyLWW   = "lww"
	MergePolicyNewer = "newer"
)

type AppConfig struct {
	NodeID string

	ServerBaseURL string
	ServerWSURL   string

	StateFile string
	RedisURL  string

	MergePolicy string

	MsgTemplateDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		StateFile:   "state/games.json",
		MergePolicy: MergePolicyLWW,
	}

	cfg.NodeID = strings.TrimSpace(os.Getenv("NODE_ID"))
	cfg.ServerBaseURL = strings.TrimSpace(os.Getenv("SERVER_BASE_URL"))
	cfg.ServerWSURL = strings.TrimSpace(os.Getenv("SERVER_WS_URL"))

	if v := strings.TrimSpace(os.Getenv("STATE_FILE")); v != "" {
		cfg.StateFile = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("MERGE_POLICY"))); v != "" {
		if v != MergePolicyLWW && v != MergePolicyNewer {
			return nil, fmt.Errorf("MERGE_POLICY must be %q or %q, got %q", MergePolicyLWW, MergePolicyNewer, v)
		}
		cfg.MergePolicy = v
	}

	cfg.MsgTemplateDir = strings.TrimSpace(os.Getenv("MSG_TEMPLATE_DIR"))

	if cfg.NodeID == "" {
		return nil, errors.New("NODE_ID is required")
	}
	if cfg.ServerBaseURL == "" {
		return nil, errors.New("SERVER_BASE_URL is required")
	}
	if cfg.ServerWSURL == "" {
		return nil, errors.New("SERVER_WS_URL is required")
	}

	return cfg, nil
}
