package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIntake()
	c.normalizeFFmpeg()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.PreviewDir, err = expandPath(c.Paths.PreviewDir); err != nil {
		return fmt.Errorf("paths.preview_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeIntake() {
	kinds := make([]string, 0, len(c.Intake.AcceptedKinds))
	for _, kind := range c.Intake.AcceptedKinds {
		kind = strings.ToLower(strings.TrimSpace(kind))
		if kind == "" {
			continue
		}
		kinds = append(kinds, kind)
	}
	if len(kinds) == 0 {
		kinds = defaultAcceptedKinds()
	}
	c.Intake.AcceptedKinds = kinds
	if c.Intake.MaxBatch < 0 {
		c.Intake.MaxBatch = 0
	}
	if c.Intake.MaxPending < 0 {
		c.Intake.MaxPending = 0
	}
}

func (c *Config) normalizeFFmpeg() {
	if strings.TrimSpace(c.FFmpeg.Binary) == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.FFmpeg.VideoCodec) == "" {
		c.FFmpeg.VideoCodec = defaultVideoCodec
	}
	if strings.TrimSpace(c.FFmpeg.Preset) == "" {
		c.FFmpeg.Preset = defaultPreset
	}
	if strings.TrimSpace(c.FFmpeg.AudioCodec) == "" {
		c.FFmpeg.AudioCodec = defaultAudioCodec
	}
	if strings.TrimSpace(c.FFmpeg.AudioBitrate) == "" {
		c.FFmpeg.AudioBitrate = defaultAudioBitrate
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
