// Package config loads and watches the YAML configuration file.
//
// A missing file yields [Default]. [Watch] keeps a live copy that
// implements [ear.SettingsProvider], so edits to the file apply from the
// next trial on.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sky-flux/ear"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// File is the on-disk configuration.
type File struct {
	Settings ear.Settings `yaml:"settings"`
	Store    Store        `yaml:"store"`
	Logging  Logging      `yaml:"logging"`
	Training Training     `yaml:"training"`
}

// Store locates the history database.
type Store struct {
	Path string `yaml:"path"`
}

// Logging sets the log level: debug, info, warn or error.
type Logging struct {
	Level string `yaml:"level"`
}

// Training holds session and timeline tuning.
type Training struct {
	FeedbackDelay time.Duration      `yaml:"feedback_delay"`
	Timeline      ear.TimelineConfig `yaml:"timeline"`
}

// DefaultStorePath is the database file used when none is configured.
const DefaultStorePath = "ear.db"

// Default returns the built-in configuration.
func Default() *File {
	return &File{
		Settings: ear.DefaultSettings(),
		Store:    Store{Path: DefaultStorePath},
		Logging:  Logging{Level: "info"},
		Training: Training{
			FeedbackDelay: ear.DefaultFeedbackDelay,
			Timeline:      ear.TimelineConfig{WindowSize: ear.DefaultWindowSize, Period: ear.Day},
		},
	}
}

// Load reads path over the defaults and validates the result.
// A missing file returns Default.
func Load(path string) (*File, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "config: read")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(ear.ErrInvalidSettings, "config: parse %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
// The file is replaced atomically so a Watcher never reads a partial write.
func (f *File) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "config: create directory")
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return errors.Wrap(err, "config: marshal")
	}
	tmp, err := os.CreateTemp(dir, ".ear-*.yaml")
	if err != nil {
		return errors.Wrap(err, "config: create temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "config: write")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "config: write")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrap(err, "config: chmod")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "config: replace")
	}
	return nil
}

// Validate checks every section. Failures wrap ear.ErrInvalidSettings.
func (f *File) Validate() error {
	if err := f.Settings.Validate(); err != nil {
		return err
	}
	if f.Store.Path == "" {
		return errors.Wrap(ear.ErrInvalidSettings, "config: empty store path")
	}
	if _, err := f.Logging.ZapLevel(); err != nil {
		return err
	}
	if f.Training.FeedbackDelay < 0 {
		return errors.Wrapf(ear.ErrInvalidSettings, "config: feedback delay %v", f.Training.FeedbackDelay)
	}
	tl := f.Training.Timeline
	if tl.WindowSize < 0 || (tl.Period != 0 && !tl.Period.IsValid()) {
		return errors.Wrapf(ear.ErrInvalidSettings, "config: timeline window %d period %v", tl.WindowSize, tl.Period)
	}
	return nil
}

// ZapLevel parses Level. An empty level is info.
func (l Logging) ZapLevel() (zapcore.Level, error) {
	if l.Level == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return lvl, errors.Wrapf(ear.ErrInvalidSettings, "config: log level %q", l.Level)
	}
	return lvl, nil
}
