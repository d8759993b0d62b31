// Package baseline retrieves a prior run artifact from a git ref so the
// engine can compute per-evaluator score deltas.
package baseline

import (
	"encoding/json"
	"log/slog"
	"os/exec"
	"path/filepath"

	"github.com/evalgate/evalgate/pkg/types"
)

// Load reads the artifact at path from ref via `git show`. A missing ref,
// missing file, or undecodable artifact yields nil: runs without a baseline
// simply skip delta annotation.
func Load(ref, path string) *types.RunResult {
	if ref == "" || path == "" {
		return nil
	}
	raw, err := exec.Command("git", "show", ref+":"+filepath.ToSlash(path)).Output()
	if err != nil {
		slog.Debug("no baseline artifact", "ref", ref, "path", path, "error", err)
		return nil
	}
	var prior types.RunResult
	if err := json.Unmarshal(raw, &prior); err != nil {
		slog.Warn("baseline artifact is not valid JSON", "ref", ref, "path", path, "error", err)
		return nil
	}
	return &prior
}
