// Package config loads application configuration from a YAML file with
// environment variable overrides for deployment secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Camera struct {
		URL              string        `yaml:"url"`
		Quality          string        `yaml:"quality"` // "low" or "high"
		Width            int           `yaml:"width"`
		Height           int           `yaml:"height"`
		ConnectTimeout   time.Duration `yaml:"connect_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		FrameInterval    time.Duration `yaml:"frame_interval"`
		FailureThreshold int           `yaml:"failure_threshold"`
	} `yaml:"camera"`

	Reconnect struct {
		MaxRetries    int           `yaml:"max_retries"`
		RetryDelay    time.Duration `yaml:"retry_delay"`
		MaxRetryDelay time.Duration `yaml:"max_retry_delay"`
	} `yaml:"reconnect"`

	Capture struct {
		JPEGQuality    int           `yaml:"jpeg_quality"`
		Folder         string        `yaml:"folder"`
		PublicIDPrefix string        `yaml:"public_id_prefix"`
		UploadTimeout  time.Duration `yaml:"upload_timeout"`
	} `yaml:"capture"`

	Cloudinary struct {
		CloudName string `yaml:"cloud_name"`
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
	} `yaml:"cloudinary"`

	Server struct {
		Address      string        `yaml:"address"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Default returns the built-in configuration. Secrets stay empty until the
// environment provides them.
func Default() *Config {
	cfg := &Config{}

	cfg.Camera.Quality = "low"
	cfg.Camera.Width = 640
	cfg.Camera.Height = 480
	cfg.Camera.ConnectTimeout = 3 * time.Second
	cfg.Camera.ReadTimeout = 3 * time.Second
	cfg.Camera.FrameInterval = 66 * time.Millisecond
	cfg.Camera.FailureThreshold = 30

	cfg.Reconnect.MaxRetries = 5
	cfg.Reconnect.RetryDelay = 1 * time.Second
	cfg.Reconnect.MaxRetryDelay = 30 * time.Second

	cfg.Capture.JPEGQuality = 90
	cfg.Capture.Folder = "v380_camera"
	cfg.Capture.PublicIDPrefix = "v380"
	cfg.Capture.UploadTimeout = 30 * time.Second

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 15 * time.Second

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	return cfg
}

// Load reads path on top of the defaults, then applies environment
// overrides. A missing file is not an error when path is empty; a named
// file that does not exist is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets the deployment environment override file values. Secrets
// are expected to arrive this way rather than being committed in YAML.
func (c *Config) applyEnv() {
	c.Camera.URL = getEnv("RTSP_URL", c.Camera.URL)
	c.Camera.Quality = getEnv("CAMERA_QUALITY", c.Camera.Quality)

	c.Cloudinary.CloudName = getEnv("CLOUDINARY_CLOUD_NAME", c.Cloudinary.CloudName)
	c.Cloudinary.APIKey = getEnv("CLOUDINARY_API_KEY", c.Cloudinary.APIKey)
	c.Cloudinary.APISecret = getEnv("CLOUDINARY_API_SECRET", c.Cloudinary.APISecret)

	c.Server.Address = getEnv("SERVER_ADDRESS", c.Server.Address)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)

	c.Camera.FailureThreshold = getEnvAsInt("CAMERA_FAILURE_THRESHOLD", c.Camera.FailureThreshold)
	c.Camera.ConnectTimeout = getEnvAsDuration("CAMERA_CONNECT_TIMEOUT", c.Camera.ConnectTimeout)
	c.Camera.ReadTimeout = getEnvAsDuration("CAMERA_READ_TIMEOUT", c.Camera.ReadTimeout)
}

// Validate rejects configurations that cannot produce a working service.
func (c *Config) Validate() error {
	if c.Camera.URL == "" {
		return fmt.Errorf("config: camera.url is required (or set RTSP_URL)")
	}
	if c.Camera.Quality != "low" && c.Camera.Quality != "high" {
		return fmt.Errorf("config: camera.quality must be \"low\" or \"high\", got %q", c.Camera.Quality)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("config: camera resolution %dx%d is invalid", c.Camera.Width, c.Camera.Height)
	}
	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		return fmt.Errorf("config: capture.jpeg_quality must be 1..100, got %d", c.Capture.JPEGQuality)
	}
	if c.Reconnect.MaxRetries < 0 {
		return fmt.Errorf("config: reconnect.max_retries must not be negative")
	}
	if c.Server.Address == "" {
		return fmt.Errorf("config: server.address is required")
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
