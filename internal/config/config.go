// Package config loads snaplabel settings from the environment and optional .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultWebPort      = "8080"
	DefaultCameraDevice = 0
	DefaultLogLevel     = "info"
)

// ErrNoCredentials is returned by Validate when neither an API key nor a
// credentials file is configured.
var ErrNoCredentials = errors.New("config: VISION_API_KEY or GOOGLE_APPLICATION_CREDENTIALS is required")

// Config holds runtime settings.
type Config struct {
	APIKey          string // VISION_API_KEY, falls back to GOOGLE_API_KEY
	CredentialsFile string // GOOGLE_APPLICATION_CREDENTIALS
	Endpoint        string // VISION_ENDPOINT, empty means the public endpoint

	CaptureDir    string // CAPTURE_DIR
	CameraDevice  int    // CAMERA_DEVICE
	CameraCommand string // CAMERA_COMMAND

	WebPort  string // WEB_PORT
	LogLevel string // LOG_LEVEL
}

// Load reads the given dotenv files (missing files are skipped) and then
// builds a Config from the environment. Variables already set in the
// environment win over dotenv values.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	apiKey := getEnv("VISION_API_KEY", "")
	if apiKey == "" {
		apiKey = getEnv("GOOGLE_API_KEY", "")
	}

	return &Config{
		APIKey:          apiKey,
		CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		Endpoint:        getEnv("VISION_ENDPOINT", ""),
		CaptureDir:      getEnv("CAPTURE_DIR", filepath.Join(os.TempDir(), "snaplabel")),
		CameraDevice:    getEnvAsInt("CAMERA_DEVICE", DefaultCameraDevice),
		CameraCommand:   getEnv("CAMERA_COMMAND", ""),
		WebPort:         getEnv("WEB_PORT", DefaultWebPort),
		LogLevel:        getEnv("LOG_LEVEL", DefaultLogLevel),
	}, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.APIKey == "" && c.CredentialsFile == "" {
		return ErrNoCredentials
	}
	if c.CameraDevice < 0 {
		return fmt.Errorf("config: CAMERA_DEVICE must be >= 0, got %d", c.CameraDevice)
	}
	if _, err := strconv.Atoi(c.WebPort); err != nil {
		return fmt.Errorf("config: WEB_PORT must be numeric, got %q", c.WebPort)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
