package handler

import (
	"fmt"
	"os"
)

// mergeEnv merges extra onto the inherited environment, coercing values
// to strings (spec.md §4.1: "merged onto the inherited environment with
// string-coerced values"). A nil/empty extra returns nil so exec.Cmd
// falls back to the default of inheriting os.Environ() unmodified.
func mergeEnv(extra map[string]string) []string {
	if len(extra) == 0 {
		return nil
	}

	merged := os.Environ()
	for k, v := range extra {
		merged = append(merged, fmt.Sprintf("%s=%s", k, v))
	}
	return merged
}
