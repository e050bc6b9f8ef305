// Package engine implements the duplicate scan performed by the
// dupefinder-engine binary: a concurrent directory walk, a size prefilter,
// content hashing and the two output formats the scan coordinator parses.
package engine
