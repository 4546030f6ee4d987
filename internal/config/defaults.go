package config

const (
	defaultLibraryRoot      = "/movies"
	defaultLogDir           = "~/.local/share/trackstrip/logs"
	defaultLogFile          = "trackstrip.log"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogMaxSizeMB     = 20
	defaultLogMaxBackups    = 5
	defaultLogMaxAgeDays    = 60
	defaultHistoryPath      = "~/.local/share/trackstrip/history.db"
	defaultMKVMergeBinary   = "mkvmerge"
	defaultIdentifyTimeout  = 120
	defaultRemuxTimeout     = 0
	defaultWatchSettleSecs  = 30
	defaultRemoveSubtitles  = true
	defaultRemoveCommentary = false
	defaultExpandAliases    = true
	defaultConvertEnabled   = false
)

var (
	defaultExtensions       = []string{".mkv"}
	defaultSourceExtensions = []string{".m2ts", ".mp4"}
	defaultSkipDirs         = []string{"@eaDir", "#recycle", ".Trash"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Library: Library{
			Root:       defaultLibraryRoot,
			Extensions: append([]string(nil), defaultExtensions...),
			SkipDirs:   append([]string(nil), defaultSkipDirs...),
		},
		Exclusion: Exclusion{
			RemoveCommentary: defaultRemoveCommentary,
			RemoveSubtitles:  defaultRemoveSubtitles,
			ExpandAliases:    defaultExpandAliases,
		},
		Convert: Convert{
			Enabled:          defaultConvertEnabled,
			SourceExtensions: append([]string(nil), defaultSourceExtensions...),
		},
		MKVMerge: MKVMerge{
			Binary:          defaultMKVMergeBinary,
			IdentifyTimeout: defaultIdentifyTimeout,
			RemuxTimeout:    defaultRemuxTimeout,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
		Watch: Watch{
			SettleSeconds: defaultWatchSettleSecs,
		},
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			File:       defaultLogFile,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
