// internal/config/config.go
package config

import (
	"errors"
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Backend struct {
		// リモートSkillSparkバックエンドのベースURL（必須）
		BaseURL string `mapstructure:"base_url"`
		// 0 はタイムアウトなし（オリジナル仕様に合わせたデフォルト）
		TimeoutSeconds int `mapstructure:"timeout_seconds"`
	} `mapstructure:"backend"`
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Storage struct {
		// ローカルKVストア(sqlite)のファイルパス
		Path string `mapstructure:"path"`
	} `mapstructure:"storage"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	CORS struct {
		AllowedOrigins   []string `mapstructure:"allowed_origins"`
		AllowedMethods   []string `mapstructure:"allowed_methods"`
		AllowedHeaders   []string `mapstructure:"allowed_headers"`
		ExposedHeaders   []string `mapstructure:"exposed_headers"`
		AllowCredentials bool     `mapstructure:"allow_credentials"`
		MaxAge           int      `mapstructure:"max_age"`
	} `mapstructure:"cors"`
	Quiz  QuizConfig  `mapstructure:"quiz"`
	Video VideoConfig `mapstructure:"video"`
}

// QuizConfig はクイズ体験のタイミング調整値です。
type QuizConfig struct {
	// クイズ取得404時のリトライ回数と間隔（バックエンドの非同期生成待ち）
	LookupRetries      int `mapstructure:"lookup_retries"`
	LookupRetryDelayMs int `mapstructure:"lookup_retry_delay_ms"`
	// 回答保存のレート制限リトライ（この1箇所のみ指数バックオフ）
	SaveRetries       int `mapstructure:"save_retries"`
	SaveBackoffBaseMs int `mapstructure:"save_backoff_base_ms"`
	// 回答後に次の設問へ自動遷移するまでの遅延
	AutoAdvanceDelayMs int `mapstructure:"auto_advance_delay_ms"`
}

// VideoConfig は動画ページキャッシュの調整値です。
type VideoConfig struct {
	// 動画ページキャッシュの有効期限
	CacheTTLHours int `mapstructure:"cache_ttl_hours"`
}

var Cfg Config

// ErrBackendURLMissing はバックエンドURL未設定（起動時致命）を表します。
var ErrBackendURLMissing = errors.New("backend.base_url is not configured")

func LoadConfig(path string) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("APP") // 例: APP_BACKEND_BASE_URL
	viper.AutomaticEnv()
	viper.BindEnv("backend.base_url", "BACKEND_BASE_URL")
	viper.BindEnv("storage.path", "STORAGE_PATH")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Warning: Config file not found. Using default settings or environment variables if available.")
		} else {
			log.Printf("Error reading config file: %s\n", err)
			return err
		}
	}

	if err := viper.Unmarshal(&Cfg); err != nil {
		log.Printf("Error unmarshalling config: %s\n", err)
		return err
	}

	// --- デフォルト値の設定 ---
	if Cfg.Server.Port == "" {
		Cfg.Server.Port = DefaultServerPort
	}
	if Cfg.Storage.Path == "" {
		Cfg.Storage.Path = DefaultStoragePath
	}
	if Cfg.Log.Level == "" {
		Cfg.Log.Level = DefaultLogLevel
	}
	if Cfg.Log.Format == "" {
		Cfg.Log.Format = DefaultLogFormat
	}
	if Cfg.Quiz.LookupRetries <= 0 {
		Cfg.Quiz.LookupRetries = DefaultQuizLookupRetries
	}
	if Cfg.Quiz.LookupRetryDelayMs <= 0 {
		Cfg.Quiz.LookupRetryDelayMs = DefaultQuizLookupRetryDelayMs
	}
	if Cfg.Quiz.SaveRetries <= 0 {
		Cfg.Quiz.SaveRetries = DefaultQuizSaveRetries
	}
	if Cfg.Quiz.SaveBackoffBaseMs <= 0 {
		Cfg.Quiz.SaveBackoffBaseMs = DefaultQuizSaveBackoffBaseMs
	}
	if Cfg.Quiz.AutoAdvanceDelayMs <= 0 {
		Cfg.Quiz.AutoAdvanceDelayMs = DefaultQuizAutoAdvanceDelayMs
	}
	if Cfg.Video.CacheTTLHours <= 0 {
		Cfg.Video.CacheTTLHours = DefaultVideoCacheTTLHours
	}

	// バックエンドURLは必須。未設定なら起動を中断する
	if Cfg.Backend.BaseURL == "" {
		log.Println("Error: backend.base_url (or APP_BACKEND_BASE_URL) is not set.")
		return ErrBackendURLMissing
	}

	log.Println("Config loaded successfully")
	log.Printf("Server Port: %s", Cfg.Server.Port)
	log.Printf("Backend URL: %s", Cfg.Backend.BaseURL)
	log.Printf("Storage Path: %s", Cfg.Storage.Path)

	return nil
}
