// Package config resolves lux's on-disk layout and tunables from
// environment variables, each with a validated default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// EnvLuxHome overrides the default lux home directory.
	EnvLuxHome = "LUX_HOME"

	// EnvAPITimeout configures the HTTP client timeout used by the
	// registry index and source fetcher.
	EnvAPITimeout = "LUX_API_TIMEOUT"

	// EnvRegistryURL overrides the default PackageIndex base URL.
	EnvRegistryURL = "LUX_REGISTRY_URL"

	// DefaultAPITimeout is used when EnvAPITimeout is unset or invalid.
	DefaultAPITimeout = 60 * time.Second

	// DefaultRegistryURL is the default PackageIndex source: a
	// GitHub-hosted tree of rockspecs served over raw.githubusercontent.com.
	DefaultRegistryURL = "https://raw.githubusercontent.com/lux-pm/lux-manifest/main"
)

// Config bundles the resolved directories and tunables a lux invocation
// needs.
type Config struct {
	// HomeDir is the root of lux's persistent state ($LUX_HOME, default
	// ~/.lux).
	HomeDir string

	// InstallRoot is the content-addressed install tree root, keyed by
	// Lua version then LocalPackageId.
	InstallRoot string

	// RegistryCacheDir caches fetched rockspecs and manifest indexes.
	RegistryCacheDir string

	// RegistryURL is the PackageIndex base URL.
	RegistryURL string

	// APITimeout bounds individual HTTP requests made by the index and
	// fetcher.
	APITimeout time.Duration
}

// Default resolves a Config from the environment, warning and falling back
// to the default whenever a duration value fails to parse. A parsed
// duration outside the accepted range (1s to 10m) is clamped to the nearest
// bound.
func Default() (*Config, error) {
	home, err := homeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve lux home: %w", err)
	}

	return &Config{
		HomeDir:          home,
		InstallRoot:      filepath.Join(home, "tree"),
		RegistryCacheDir: filepath.Join(home, "cache", "registry"),
		RegistryURL:      registryURL(),
		APITimeout:       apiTimeout(),
	}, nil
}

func homeDir() (string, error) {
	if v := os.Getenv(EnvLuxHome); v != "" {
		return v, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userHome, ".lux"), nil
}

func registryURL() string {
	if v := os.Getenv(EnvRegistryURL); v != "" {
		return v
	}
	return DefaultRegistryURL
}

func apiTimeout() time.Duration {
	raw := os.Getenv(EnvAPITimeout)
	if raw == "" {
		return DefaultAPITimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: invalid %s value %q, using default %v\n", EnvAPITimeout, raw, DefaultAPITimeout)
		return DefaultAPITimeout
	}
	if d < time.Second {
		return time.Second
	}
	if d > 10*time.Minute {
		return 10 * time.Minute
	}
	return d
}

// EnsureDirectories creates HomeDir, InstallRoot, and RegistryCacheDir if
// they do not already exist.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.HomeDir, c.InstallRoot, c.RegistryCacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// ExternalDepEnv returns the three environment variable names lux consults
// for an external dependency named `name`, e.g. "OPENSSL" ->
// ("OPENSSL_DIR", "OPENSSL_INCDIR", "OPENSSL_LIBDIR").
func ExternalDepEnv(name string) (dirVar, incdirVar, libdirVar string) {
	return name + "_DIR", name + "_INCDIR", name + "_LIBDIR"
}
