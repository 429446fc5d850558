// ABOUTME: Loads environment variables from .env files without clobbering the existing environment.
// ABOUTME: Lets the console share the backend checkout's .env (API base URLs) when run from it.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Missing files are ignored. Supports KEY=VALUE, quoted values,
// comments and an optional "export " prefix.
func LoadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		// Values can contain '='.
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))

		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// LoadDotEnvAuto loads .env from the working directory and each of its
// parents, then next to the executable. Nearer files win.
func LoadDotEnvAuto() {
	seen := map[string]bool{}
	load := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		LoadDotEnv(p)
	}

	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for {
			load(filepath.Join(dir, ".env"))
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	if exe, err := os.Executable(); err == nil {
		load(filepath.Join(filepath.Dir(exe), ".env"))
	}
}
