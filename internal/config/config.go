package config

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	VideosDir string `yaml:"videos_dir"`
	LogFile   string `yaml:"log_file"`

	// Analysis settings
	Analysis AnalysisFileConfig `yaml:"analysis"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Detection model settings
	Models ModelConfig `yaml:"models"`
}

// AnalysisFileConfig carries the analysis defaults a config file may set.
type AnalysisFileConfig struct {
	Preset  string `yaml:"preset"`
	Workers int    `yaml:"workers"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	Threads    int    `yaml:"threads"`
}

type ModelConfig struct {
	FaceLandmarkPath string `yaml:"face_landmark_path"`
	YoloPath         string `yaml:"yolo_path"`
	CascadePath      string `yaml:"cascade_path"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func defaultConfig() *Config {
	return &Config{
		VideosDir: "./videos",
		LogFile:   "errors.log",
		Analysis: AnalysisFileConfig{
			Preset: "balanced",
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			Threads:    0,
		},
		Models: ModelConfig{
			FaceLandmarkPath: "./models/face_landmark.onnx",
			YoloPath:         "./models/yolov8n.onnx",
			CascadePath:      "./models/facefinder",
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".framescope", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
