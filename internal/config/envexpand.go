package config

import "os"

// ExpandEnv expands environment variables in YAML content using Go's
// standard library, ${VAR}/$VAR shell-style substitution applied
// before parsing. Missing variables expand to empty string; Validate
// catches required fields left empty.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
