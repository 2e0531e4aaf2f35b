package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIntake(); err != nil {
		return err
	}
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.PreviewDir == "" {
		return errors.New("paths.preview_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.SocketPath == "" {
		return errors.New("paths.socket_path must be set")
	}
	return nil
}

func (c *Config) validateIntake() error {
	for _, kind := range c.Intake.AcceptedKinds {
		if strings.HasPrefix(kind, ".") {
			if len(kind) == 1 {
				return fmt.Errorf("intake.accepted_kinds: bare dot is not a valid extension pattern")
			}
			continue
		}
		if !strings.Contains(kind, "/") {
			return fmt.Errorf("intake.accepted_kinds: %q is neither a media-type pattern nor an extension", kind)
		}
	}
	if c.Intake.MaxFileMiB < 0 {
		return errors.New("intake.max_file_mib must not be negative")
	}
	return nil
}

func (c *Config) validateFFmpeg() error {
	if c.FFmpeg.CRF < 0 || c.FFmpeg.CRF > 63 {
		return errors.New("ffmpeg.crf must be between 0 and 63")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
