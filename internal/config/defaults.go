package config

const (
	defaultWorkDir             = "~/.local/share/habari/work"
	defaultStateDir            = "~/.local/share/habari"
	defaultLogDir              = "~/.local/share/habari/logs"
	defaultMaxItemsPerFeed     = 6
	defaultFeedTimeout         = 20
	defaultPlaceholderTitle    = "News headline unavailable"
	defaultPlaceholderSummary  = "Details unavailable"
	defaultPlaceholderImageURL = "https://picsum.photos/1920/1080?random={token}"
	defaultUserAgent           = "habari/0.1 (+https://github.com/habari)"
	defaultTranslateProvider   = "google"
	defaultSourceLanguage      = "auto"
	defaultTargetLanguage      = "sw"
	defaultTranslateBaseURL    = "https://translate.googleapis.com/translate_a/single"
	defaultTranslateMinLength  = 5
	defaultTranslateMaxWords   = 80
	defaultTranslateTimeout    = 30
	defaultTTSMinBytes         = 100
	defaultTTSTimeout          = 60
	defaultGoogleTTSBaseURL    = "https://translate.google.com/translate_tts"
	defaultGoogleTTSRPS        = 2
	defaultImageTimeout        = 20
	defaultImageMaxBytes       = 25 << 20
	defaultRenderWidth         = 1920
	defaultRenderHeight        = 1080
	defaultRenderPreset        = "ultrafast"
	defaultRenderAudioBitrate  = "128k"
	defaultSampleRate          = 44100
	defaultRenderBlur          = "20:5"
	defaultRenderMinBytes      = 1000
	defaultIngestURL           = "rtmp://a.rtmp.youtube.com/live2/"
	defaultStreamKeyEnv        = "YOUTUBE_STREAM_KEY"
	defaultStreamPreset        = "veryfast"
	defaultStreamMaxRate       = "4500k"
	defaultStreamBufSize       = "9000k"
	defaultStreamGOP           = 60
	defaultStreamAudioBitrate  = "128k"
	defaultStreamTimeoutSlack  = 120
	defaultOpenAIBaseURL       = "https://api.openai.com/v1"
	defaultOpenAIChatModel     = "gpt-4o-mini"
	defaultOpenAISpeechModel   = "tts-1"
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultEdgeTTSBinary       = "edge-tts"
	defaultSegmentCooldown     = 2
	defaultEmptyCycleBackoff   = 60
	defaultPublishBackoff      = 10
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 14
	manifestFileName           = "playlist.txt"
)

var defaultFeedURLs = []string{
	"https://www.bbc.com/swahili/index.xml",
	"https://www.dw.com/sw/habari/rss-30740-swahili",
}

var defaultEngines = []string{
	"edge:sw-TZ-LughaNeural",
	"edge:sw-KE-ZuriNeural",
	"gtts:sw",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Feeds: Feeds{
			URLs:                append([]string(nil), defaultFeedURLs...),
			MaxItemsPerFeed:     defaultMaxItemsPerFeed,
			RequestTimeout:      defaultFeedTimeout,
			PlaceholderTitle:    defaultPlaceholderTitle,
			PlaceholderSummary:  defaultPlaceholderSummary,
			PlaceholderImageURL: defaultPlaceholderImageURL,
			UserAgent:           defaultUserAgent,
		},
		Translate: Translate{
			Provider:       defaultTranslateProvider,
			SourceLanguage: defaultSourceLanguage,
			TargetLanguage: defaultTargetLanguage,
			BaseURL:        defaultTranslateBaseURL,
			MinLength:      defaultTranslateMinLength,
			MaxWords:       defaultTranslateMaxWords,
			RequestTimeout: defaultTranslateTimeout,
		},
		TTS: TTS{
			Engines:        append([]string(nil), defaultEngines...),
			MinBytes:       defaultTTSMinBytes,
			RequestTimeout: defaultTTSTimeout,
			GoogleBaseURL:  defaultGoogleTTSBaseURL,
			GoogleRPS:      defaultGoogleTTSRPS,
		},
		Images: Images{
			RequestTimeout: defaultImageTimeout,
			MaxBytes:       defaultImageMaxBytes,
		},
		Render: Render{
			Width:        defaultRenderWidth,
			Height:       defaultRenderHeight,
			Preset:       defaultRenderPreset,
			AudioBitrate: defaultRenderAudioBitrate,
			SampleRate:   defaultSampleRate,
			BlurRadius:   defaultRenderBlur,
			MinBytes:     defaultRenderMinBytes,
		},
		Stream: Stream{
			IngestURL:    defaultIngestURL,
			KeyEnv:       defaultStreamKeyEnv,
			Preset:       defaultStreamPreset,
			MaxRate:      defaultStreamMaxRate,
			BufSize:      defaultStreamBufSize,
			KeyframeGOP:  defaultStreamGOP,
			AudioBitrate: defaultStreamAudioBitrate,
			SampleRate:   defaultSampleRate,
			TimeoutSlack: defaultStreamTimeoutSlack,
		},
		OpenAI: OpenAI{
			BaseURL:     defaultOpenAIBaseURL,
			ChatModel:   defaultOpenAIChatModel,
			SpeechModel: defaultOpenAISpeechModel,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
			EdgeTTS: defaultEdgeTTSBinary,
		},
		Workflow: Workflow{
			SegmentCooldown:       defaultSegmentCooldown,
			EmptyCycleBackoff:     defaultEmptyCycleBackoff,
			PublishFailureBackoff: defaultPublishBackoff,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			CyclePublished: true,
			EmptyCycle:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
