package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dupefinder/internal/config"
)

// Keys stored in the settings table.
const (
	KeyMinSize        = "minSize"
	KeyFollowSymlinks = "followSymlinks"
	KeyLastDirectory  = "lastDirectory"
)

// Settings are the persisted scan preferences.
type Settings struct {
	MinSize        int64  `json:"minSize"`
	FollowSymlinks bool   `json:"followSymlinks"`
	LastDirectory  string `json:"lastDirectory"`
}

// Defaults derives initial settings from the [scan] configuration section.
func Defaults(cfg *config.Config) Settings {
	if cfg == nil {
		return Settings{}
	}
	return Settings{MinSize: cfg.Scan.MinSize, FollowSymlinks: cfg.Scan.FollowSymlinks}
}

// Get returns the stored value for key, or def when it has never been set.
func (s *Store) Get(ctx context.Context, key, def string) (string, error) {
	ctx = ensureContext(ctx)
	var value string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	err := s.exec(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// Load returns the persisted settings, falling back to defaults per key.
func (s *Store) Load(ctx context.Context, defaults Settings) (Settings, error) {
	out := defaults

	raw, err := s.Get(ctx, KeyMinSize, strconv.FormatInt(defaults.MinSize, 10))
	if err != nil {
		return Settings{}, err
	}
	if out.MinSize, err = strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err != nil || out.MinSize < 0 {
		out.MinSize = defaults.MinSize
	}

	raw, err = s.Get(ctx, KeyFollowSymlinks, strconv.FormatBool(defaults.FollowSymlinks))
	if err != nil {
		return Settings{}, err
	}
	if out.FollowSymlinks, err = strconv.ParseBool(strings.TrimSpace(raw)); err != nil {
		out.FollowSymlinks = defaults.FollowSymlinks
	}

	if out.LastDirectory, err = s.Get(ctx, KeyLastDirectory, defaults.LastDirectory); err != nil {
		return Settings{}, err
	}
	return out, nil
}

// Save persists every settings key in one transaction.
func (s *Store) Save(ctx context.Context, values Settings) error {
	if values.MinSize < 0 {
		return fmt.Errorf("minSize must be zero or positive, got %d", values.MinSize)
	}
	ctx = ensureContext(ctx)
	now := formatTime(time.Now())
	pairs := [][2]string{
		{KeyMinSize, strconv.FormatInt(values.MinSize, 10)},
		{KeyFollowSymlinks, strconv.FormatBool(values.FollowSymlinks)},
		{KeyLastDirectory, values.LastDirectory},
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin settings tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		for _, pair := range pairs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				pair[0], pair[1], now,
			); err != nil {
				return fmt.Errorf("save setting %s: %w", pair[0], err)
			}
		}
		return tx.Commit()
	})
}
