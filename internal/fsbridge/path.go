package fsbridge

import (
	"errors"
	"path/filepath"
	"strings"
)

// errEscapesRoot is returned verbatim as the bridge's error text for any
// path whose ".." components would pop above the workspace root.
var errEscapesRoot = errors.New("path escapes workspace root")

// resolvePath resolves path against root: absolute paths pass through
// untouched (aside from Clean); relative paths are normalized
// component-by-component, with "." ignored, ".." popping the last pushed
// component, and a pop against an empty stack rejected outright.
func resolvePath(root, path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	var stack []string
	for _, comp := range strings.Split(filepath.ToSlash(path), "/") {
		switch comp {
		case "", ".":
			continue
		case "..":
			if len(stack) == 0 {
				return "", errEscapesRoot
			}
			stack = stack[:len(stack)-1]
		default:
			stack = append(stack, comp)
		}
	}

	return filepath.Join(append([]string{root}, stack...)...), nil
}
