// internal/config/constants.go
package config

// アプリケーション情報
const (
	AppName    = "SkillSpark Companion"
	AppVersion = "1.2.0"
)

// デフォルト設定値
const (
	DefaultServerPort  = ":8090"
	DefaultStoragePath = "./skillspark.db"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"

	DefaultQuizLookupRetries      = 3
	DefaultQuizLookupRetryDelayMs = 2000
	DefaultQuizSaveRetries        = 2
	DefaultQuizSaveBackoffBaseMs  = 1000
	DefaultQuizAutoAdvanceDelayMs = 500

	DefaultVideoCacheTTLHours = 24
)

// ローカルストレージのキー（オリジナルのAsyncStorageキーを踏襲）
const (
	KeyUserSession      = "@SkillSpark_user_session"
	KeyLegacyUser       = "@SkillSpark_user"
	KeySettingsCache    = "@SkillSpark_user_settings_cache"
	KeyActiveRoadmap    = "@SkillSpark_active_roadmap"
	LocalKeyPrefix      = "@SkillSpark_"
	VideoCacheKeyPrefix = "point_videos_"
)
