// Package settings persists user scan preferences and scan history in a
// SQLite database under the state directory.
//
// Preferences are plain key/value rows (minSize, followSymlinks,
// lastDirectory). Each scan session leaves one scan_history row that is
// inserted when the scan starts and updated when it reaches a terminal state.
package settings
