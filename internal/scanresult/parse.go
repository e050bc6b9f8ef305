package scanresult

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"dupefinder/internal/logging"
	"dupefinder/internal/services"
)

const (
	legacyMarker    = "Duplicates:"
	legacyDelimiter = "|"
	maxLoggedOutput = 4096
)

var errNotStructured = errors.New("no structured payload")

// maxLegacyLine bounds a single legacy output line.
var maxLegacyLine = 16 * 1024 * 1024

// EngineFailure builds the error for a non-zero engine exit, carrying the
// captured stderr as detail.
func EngineFailure(exitCode int, stderr string) error {
	detail := strings.TrimSpace(stderr)
	if detail == "" {
		detail = "no diagnostic output"
	}
	return services.Wrap(services.ErrEngineExecution, "engine", "scan",
		fmt.Sprintf("exit status %d", exitCode), errors.New(detail))
}

// Parse interprets engine stdout. A non-zero exit code is never parsed.
// Empty output after a successful exit is a parse error; non-empty output
// that yields no groups is a valid empty result.
func Parse(stdout string, exitCode int, logger *slog.Logger) (Result, error) {
	logger = logging.NewComponentLogger(logger, "parser")
	if exitCode != 0 {
		return Result{}, EngineFailure(exitCode, "")
	}
	if strings.TrimSpace(stdout) == "" {
		return Result{}, services.Wrap(services.ErrParse, "parser", "parse", "engine exited successfully without output", nil)
	}

	result, err := parseStructured(stdout, logger)
	if err == nil {
		return result, nil
	}

	logger.Debug("structured decode failed; using legacy format",
		logging.String(logging.FieldEventType, "parse_fallback"),
		logging.Error(err),
		logging.String("raw_output", truncate(stdout, maxLoggedOutput)),
	)
	result = parseLegacy(stdout, logger)
	if len(result.Groups) == 0 {
		logger.Info("engine output contained no duplicate groups",
			logging.String(logging.FieldEventType, "parse_empty"),
			logging.Int("output_bytes", len(stdout)),
		)
	}
	return result, nil
}

type structuredPayload struct {
	DuplicateGroups []DuplicateGroup `json:"duplicate_groups"`
	TotalFiles      *int             `json:"total_files"`
	TotalDuplicates *int             `json:"total_duplicates"`
}

func parseStructured(stdout string, logger *slog.Logger) (Result, error) {
	payload, err := firstPayloadObject(stdout)
	if err != nil {
		return Result{}, err
	}

	var decoded structuredPayload
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return Result{}, fmt.Errorf("decode payload: %w", err)
	}

	result := Result{Format: FormatStructured, Groups: make([]DuplicateGroup, 0, len(decoded.DuplicateGroups))}
	dropped := 0
	for _, group := range decoded.DuplicateGroups {
		files := cleanPaths(group.Files)
		if len(files) < 2 {
			dropped++
			continue
		}
		result.Groups = append(result.Groups, DuplicateGroup{Files: files, Hash: group.Hash})
	}
	if dropped > 0 {
		logger.Debug("dropped undersized groups", logging.Int("dropped", dropped))
	}

	if decoded.TotalFiles != nil && decoded.TotalDuplicates != nil {
		result.Counts = &Counts{TotalFiles: *decoded.TotalFiles, TotalDuplicates: *decoded.TotalDuplicates}
		if sum := result.TotalDuplicates(); sum != result.Counts.TotalDuplicates {
			logging.WarnWithContext(logger, "engine duplicate count disagrees with groups", "parse_count_mismatch",
				logging.Int("reported", result.Counts.TotalDuplicates),
				logging.Int("counted", sum),
				logging.String(logging.FieldImpact, "summary totals use the engine-reported value"),
				logging.String(logging.FieldErrorHint, "rebuild the engine if this persists"),
			)
		}
	} else {
		logging.WarnWithContext(logger, "engine omitted aggregate counts", "parse_counts_missing",
			logging.String(logging.FieldImpact, "total file count unknown for this scan"),
		)
	}
	return result, nil
}

// firstPayloadObject decodes exactly one JSON value starting at each '{' in
// turn and returns the first object carrying duplicate_groups. Text before
// and after that object is ignored.
func firstPayloadObject(stdout string) ([]byte, error) {
	lastErr := errNotStructured
	for offset := 0; offset < len(stdout); {
		idx := strings.IndexByte(stdout[offset:], '{')
		if idx < 0 {
			break
		}
		start := offset + idx
		offset = start + 1

		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(stdout[start:])).Decode(&raw); err != nil {
			lastErr = fmt.Errorf("decode payload: %w", err)
			continue
		}
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(raw, &keys); err != nil {
			lastErr = fmt.Errorf("decode payload: %w", err)
			continue
		}
		if _, ok := keys["duplicate_groups"]; !ok {
			lastErr = fmt.Errorf("%w: duplicate_groups missing", errNotStructured)
			continue
		}
		return raw, nil
	}
	return nil, lastErr
}

func parseLegacy(stdout string, logger *slog.Logger) Result {
	result := Result{Format: FormatLegacy, Groups: []DuplicateGroup{}}
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLegacyLine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		rest, ok := strings.CutPrefix(line, legacyMarker)
		if !ok {
			continue
		}
		files := cleanPaths(strings.Split(rest, legacyDelimiter))
		if len(files) < 2 {
			continue
		}
		result.Groups = append(result.Groups, DuplicateGroup{Files: files})
	}
	if err := scanner.Err(); err != nil {
		logging.WarnWithContext(logger, "legacy output read stopped early", "parse_legacy_truncated",
			logging.Error(err),
			logging.Int("groups_read", len(result.Groups)),
			logging.String(logging.FieldImpact, "duplicate groups after the unreadable line are missing"),
		)
	}
	return result
}

func cleanPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "...(truncated)"
}
