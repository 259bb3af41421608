// Package version records the build version of the sync binary.
package version

// Current is the semantic version without a "v" prefix.
const Current = "0.1.0"
