package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveSidecar returns the command to run for name. WhisperX and Demucs
// are usually installed into the same Python virtualenv, so when name is a
// bare command that is not on PATH, the directory holding the resolved
// anchor binary is tried before giving up. The bare name is returned when
// nothing better is found.
func ResolveSidecar(anchor, name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	if resolved, err := exec.LookPath(name); err == nil {
		return resolved
	}
	anchor = strings.TrimSpace(anchor)
	if anchor == "" {
		return name
	}
	resolvedAnchor, err := exec.LookPath(anchor)
	if err != nil {
		return name
	}
	if candidate, ok := sidecarCandidate(resolvedAnchor, name); ok {
		if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
			return candidate
		}
	}
	return name
}

func sidecarCandidate(anchorPath, name string) (string, bool) {
	if anchorPath == "" {
		return "", false
	}
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(anchorPath), name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
