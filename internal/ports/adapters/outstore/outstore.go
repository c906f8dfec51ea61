// Package outstore publishes finished renders. Stores are append-only: a
// name that already exists is never replaced.
package outstore

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

var ErrExists = errors.New("output already exists")

func cleanName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", errors.New("output name is required")
	}
	if strings.ContainsAny(n, `/\`) || n == "." || n == ".." || path.Clean(n) != n {
		return "", fmt.Errorf("output name %q must be a plain file name", name)
	}
	return n, nil
}
