// Package manifest loads and validates mvsc.jsonc (SPEC_FULL.md §4.9), an
// optional project file that sits next to a program's entry source and
// supplies defaults for flags the CLI would otherwise require on every
// invocation.
//
// Parsed with github.com/tailscale/hujson so the file may carry comments
// and trailing commas, the same JSON-with-comments convention the teacher's
// own ast package declares a dependency on for its configuration surface.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
	"golang.org/x/mod/semver"
)

// Manifest holds mvsc.jsonc's recognized fields. Every field is optional;
// a missing field leaves the CLI's own default untouched.
type Manifest struct {
	Version           string `json:"version"`
	MaxStackArraySize *int   `json:"maxStackArraySize"`
	Optimize          *bool  `json:"optimize"`
}

// Load reads and validates the mvsc.jsonc sitting next to entryPath, if one
// exists. A missing manifest is not an error — it returns a zero Manifest
// and ok=false so the caller falls back to CLI-flag defaults.
func Load(entryPath string) (m Manifest, ok bool, err error) {
	dir := filepath.Dir(entryPath)
	path := filepath.Join(dir, "mvsc.jsonc")

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, false, nil
		}
		return Manifest{}, false, fmt.Errorf("manifest: %w", err)
	}

	std, err := hujson.Standardize(raw)
	if err != nil {
		return Manifest{}, false, fmt.Errorf("manifest: %s: %w", path, err)
	}
	if err := json.Unmarshal(std, &m); err != nil {
		return Manifest{}, false, fmt.Errorf("manifest: %s: %w", path, err)
	}

	if m.Version != "" && !semver.IsValid(canonicalSemver(m.Version)) {
		return Manifest{}, false, fmt.Errorf("manifest: %s: %q is not a valid semantic version", path, m.Version)
	}

	return m, true, nil
}

// canonicalSemver adds the "v" prefix golang.org/x/mod/semver requires;
// mvsc.jsonc's "version" field follows plain semver (no leading "v"), per
// SPEC_FULL.md's example.
func canonicalSemver(v string) string {
	if len(v) > 0 && v[0] != 'v' {
		return "v" + v
	}
	return v
}
