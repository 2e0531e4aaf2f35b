package config

const (
	defaultStagingDir         = "~/.local/share/squeeze/staging"
	defaultPreviewDir         = "~/.local/share/squeeze/previews"
	defaultLogDir             = "~/.local/share/squeeze/logs"
	defaultSocketPath         = "~/.local/share/squeeze/squeezed.sock"
	defaultMaxFileMiB         = 2048
	defaultFFmpegBinary       = "ffmpeg"
	defaultVideoCodec         = "libx264"
	defaultPreset             = "ultrafast"
	defaultCRF                = 28
	defaultAudioCodec         = "aac"
	defaultAudioBitrate       = "128k"
	defaultQueuePollInterval  = 1
	defaultErrorRetryInterval = 5
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

func defaultAcceptedKinds() []string {
	return []string{"video/*"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			PreviewDir: defaultPreviewDir,
			LogDir:     defaultLogDir,
			SocketPath: defaultSocketPath,
		},
		Intake: Intake{
			AcceptedKinds: defaultAcceptedKinds(),
			MaxFileMiB:    defaultMaxFileMiB,
		},
		FFmpeg: FFmpeg{
			Binary:       defaultFFmpegBinary,
			VideoCodec:   defaultVideoCodec,
			Preset:       defaultPreset,
			CRF:          defaultCRF,
			AudioCodec:   defaultAudioCodec,
			AudioBitrate: defaultAudioBitrate,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
