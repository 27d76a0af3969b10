package config

const (
	defaultSourceDir             = "~/music/inbox"
	defaultTargetDir             = "~/music/library"
	defaultDataDir               = "~/.local/share/tagbrain"
	defaultLogDir                = "~/.local/share/tagbrain/logs"
	defaultAPIBind               = "127.0.0.1:7488"
	defaultFpcalcBinary          = "fpcalc"
	defaultAcoustIDBaseURL       = "https://api.acoustid.org/v2"
	defaultMatchThreshold        = 0.8
	defaultAcoustIDRate          = 3.0
	defaultMusicBrainzBaseURL    = "https://musicbrainz.org/ws/2"
	defaultCoverArtBaseURL       = "https://coverartarchive.org"
	defaultMusicBrainzIntervalMS = 1000
	defaultSearchLimit           = 15
	defaultSelectorWeight        = 1.0
	defaultDistanceThreshold     = 0.5
	defaultNotifyTimeout         = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogMaxSizeMB          = 20
	defaultLogMaxBackups         = 5
	defaultLogMaxAgeDays         = 30
)

var defaultAllowedExtensions = []string{"flac", "mp3", "m4a", "ogg", "opus", "wma", "wav"}

// DefaultUserAgent is the identification string MusicBrainz asks clients to send.
func DefaultUserAgent() string {
	return "tagbrain/" + Version + " ( https://github.com/nazo6/tagbrain )"
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	extensions := make([]string, len(defaultAllowedExtensions))
	copy(extensions, defaultAllowedExtensions)
	return Config{
		Paths: Paths{
			SourceDir: defaultSourceDir,
			TargetDir: defaultTargetDir,
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Scan: Scan{
			AllowedExtensions: extensions,
			FpcalcBinary:      defaultFpcalcBinary,
			Watch:             true,
		},
		AcoustID: AcoustID{
			BaseURL:           defaultAcoustIDBaseURL,
			MatchThreshold:    defaultMatchThreshold,
			RequestsPerSecond: defaultAcoustIDRate,
		},
		MusicBrainz: MusicBrainz{
			BaseURL:         defaultMusicBrainzBaseURL,
			UserAgent:       DefaultUserAgent(),
			MinIntervalMS:   defaultMusicBrainzIntervalMS,
			SearchLimit:     defaultSearchLimit,
			CoverArtBaseURL: defaultCoverArtBaseURL,
		},
		ReleaseSelector: ReleaseSelector{
			Country:                Preference{Preferred: []string{}, Weight: defaultSelectorWeight},
			ReleaseGroupType:       Preference{Preferred: []string{}, Weight: defaultSelectorWeight},
			ReleaseTitleDistance:   Distance{Threshold: defaultDistanceThreshold, Weight: defaultSelectorWeight},
			RecordingTitleDistance: Distance{Threshold: defaultDistanceThreshold, Weight: defaultSelectorWeight},
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			ScanFailures:   true,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
