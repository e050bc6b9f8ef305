// Package locator finds the scanning engine binary and, in development mode,
// builds it from source when it is missing.
//
// Packaged installs never build: a missing engine there is a configuration
// error. Development checkouts run the configured build tool once and
// re-check that the binary actually appeared before reporting success.
package locator
