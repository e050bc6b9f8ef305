// Package scanresult defines the canonical duplicate-scan result model and
// parses engine output into it.
//
// The engine speaks two dialects. The structured dialect is a single JSON
// object carrying duplicate groups and aggregate counts. The legacy dialect is
// zero or more "Duplicates:" lines with '|'-separated paths and no counts.
// Parse always tries the structured form first and falls back to the legacy
// form only when no structured payload can be decoded.
package scanresult
