package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ortLibraryName returns the platform's ONNX Runtime shared library file
// name.
func ortLibraryName() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}

// resolveORTLib finds the ONNX Runtime shared library. An explicit path wins
// and must exist; otherwise the ONNXRUNTIME_SHARED_LIBRARY_PATH environment
// variable is honored, then conventional install locations and the
// executable's own directory are probed.
func resolveORTLib(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("onnxruntime library not found at %s: %w", explicit, err)
		}
		return explicit, nil
	}

	if env := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); env != "" {
		if _, err := os.Stat(env); err != nil {
			return "", fmt.Errorf("ONNXRUNTIME_SHARED_LIBRARY_PATH points at %s: %w", env, err)
		}
		return env, nil
	}

	name := ortLibraryName()
	candidates := []string{
		filepath.Join("/usr/local/lib", name),
		filepath.Join("/usr/lib", name),
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), name))
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("onnxruntime library %s not found; set -ort-lib or ONNXRUNTIME_SHARED_LIBRARY_PATH", name)
}
