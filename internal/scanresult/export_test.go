package scanresult

import "testing"

// SetMaxLegacyLine shrinks the legacy line limit for the duration of a test.
func SetMaxLegacyLine(t *testing.T, n int) {
	t.Helper()
	prev := maxLegacyLine
	maxLegacyLine = n
	t.Cleanup(func() { maxLegacyLine = prev })
}
