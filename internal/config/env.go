package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

// envFiles are read from the descriptor directory, most specific first.
// Values already present in the process environment are never overridden.
var envFiles = []string{".env.local", ".env"}

// loadEnvFiles loads every env file present in dir and returns the ones loaded.
func loadEnvFiles(dir string) []string {
	var loaded []string
	for _, name := range envFiles {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("Failed to load env file", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		loaded = append(loaded, p)
	}
	return loaded
}

// envRef matches ${NAME} references. Bare $NAME and $1 are left as written so
// shell snippets and regexp replacements in options survive decoding.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv substitutes ${NAME} references in a YAML descriptor with values
// from the process environment. Unset variables expand to the empty string.
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		return []byte(os.Getenv(string(envRef.FindSubmatch(ref)[1])))
	})
}

// envMap returns the process environment as a map for HCL evaluation.
func envMap() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			out[k] = v
		}
	}
	return out
}
