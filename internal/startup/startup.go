package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/vncgregorio/videoteka-media-center/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration
type Config struct {
	DataDir         string
	CacheDir        string
	Port            string
	MetricsEnabled  bool
	PreviewsEnabled bool
	UseVips         bool

	// Derived paths
	DatabasePath string
	PreviewDir   string
}

// LoadConfig loads and validates configuration from environment
// variables, creating the data and cache directories as needed.
func LoadConfig() (*Config, error) {
	logging.Info("videoteka-media-center %s (%s, built %s)", Version, Commit, BuildTime)

	cfg := &Config{
		DataDir:         getEnv("DATA_DIR", "./data"),
		CacheDir:        getEnv("CACHE_DIR", "./cache"),
		Port:            getEnv("PORT", "8080"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		PreviewsEnabled: getEnvBool("PREVIEWS_ENABLED", true),
		UseVips:         getEnvBool("USE_VIPS", false),
	}
	cfg.DatabasePath = filepath.Join(cfg.DataDir, "library.db")
	cfg.PreviewDir = filepath.Join(cfg.CacheDir, "previews")

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", cfg.Port, err)
	}

	for _, dir := range []string{cfg.DataDir, cfg.CacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	logging.Info("  DATA_DIR:         %s", cfg.DataDir)
	logging.Info("  CACHE_DIR:        %s", cfg.CacheDir)
	logging.Info("  PORT:             %s", cfg.Port)
	logging.Info("  METRICS_ENABLED:  %t", cfg.MetricsEnabled)
	logging.Info("  PREVIEWS_ENABLED: %t", cfg.PreviewsEnabled)
	logging.Info("  USE_VIPS:         %t", cfg.UseVips)

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logging.Warn("invalid boolean for %s: %q, using %t", key, v, fallback)
		return fallback
	}
	return b
}
