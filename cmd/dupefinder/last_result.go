package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"dupefinder/internal/fileutil"
	"dupefinder/internal/scanresult"
)

// savedResult is the on-disk form of the most recent completed scan, used by
// commands that run after the scanning process exited.
type savedResult struct {
	SessionID   string            `json:"session_id"`
	Directory   string            `json:"directory"`
	CompletedAt time.Time         `json:"completed_at"`
	Result      scanresult.Result `json:"result"`
}

var errNoSavedResult = errors.New("no completed scan found; run `dupefinder scan` first")

func loadSavedResult(path string) (savedResult, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return savedResult{}, errNoSavedResult
	}
	if err != nil {
		return savedResult{}, fmt.Errorf("read last result: %w", err)
	}
	var saved savedResult
	if err := json.Unmarshal(data, &saved); err != nil {
		return savedResult{}, fmt.Errorf("decode last result %s: %w", path, err)
	}
	return saved, nil
}

func writeSavedResult(path string, saved savedResult) error {
	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("encode last result: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write last result: %w", err)
	}
	return nil
}
