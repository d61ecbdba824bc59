// internal/model/settings.go
package model

// Theme は表示テーマです。
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// RoadmapDepth はバックエンド語彙のロードマップ生成深度です。
type RoadmapDepth string

const (
	DepthBasic         RoadmapDepth = "basic"
	DepthDetailed      RoadmapDepth = "detailed"
	DepthComprehensive RoadmapDepth = "comprehensive"
)

// VideoLength はバックエンド語彙の動画尺設定です。
type VideoLength string

const (
	LengthShort  VideoLength = "short"
	LengthMedium VideoLength = "medium"
	LengthLong   VideoLength = "long"
)

// UI層の語彙。バックエンド語彙とは翻訳テーブルで相互変換する。
type DepthChoice string

const (
	ChoiceFast     DepthChoice = "Fast"
	ChoiceBalanced DepthChoice = "Balanced"
	ChoiceDetailed DepthChoice = "Detailed"
)

type LengthChoice string

const (
	ChoiceShort  LengthChoice = "Short"
	ChoiceMedium LengthChoice = "Medium"
	ChoiceLong   LengthChoice = "Long"
)

// UserPreferences はUI語彙でのユーザー設定（生成リクエストにもこの語彙で載せる）。
type UserPreferences struct {
	Depth       DepthChoice  `json:"depth"`
	VideoLength LengthChoice `json:"videoLength"`
}

// DefaultPreferences は設定未取得時のフォールバック値です。
func DefaultPreferences() UserPreferences {
	return UserPreferences{Depth: ChoiceBalanced, VideoLength: ChoiceMedium}
}

// --- 翻訳テーブル（3x3の組み合わせで厳密に可逆であること） ---

func (d RoadmapDepth) ToChoice() DepthChoice {
	switch d {
	case DepthBasic:
		return ChoiceFast
	case DepthDetailed:
		return ChoiceBalanced
	case DepthComprehensive:
		return ChoiceDetailed
	default:
		return ChoiceBalanced
	}
}

func (c DepthChoice) ToDepth() RoadmapDepth {
	switch c {
	case ChoiceFast:
		return DepthBasic
	case ChoiceBalanced:
		return DepthDetailed
	case ChoiceDetailed:
		return DepthComprehensive
	default:
		return DepthDetailed
	}
}

func (l VideoLength) ToChoice() LengthChoice {
	switch l {
	case LengthShort:
		return ChoiceShort
	case LengthMedium:
		return ChoiceMedium
	case LengthLong:
		return ChoiceLong
	default:
		return ChoiceMedium
	}
}

func (c LengthChoice) ToLength() VideoLength {
	switch c {
	case ChoiceShort:
		return LengthShort
	case ChoiceMedium:
		return LengthMedium
	case ChoiceLong:
		return LengthLong
	default:
		return LengthMedium
	}
}

// UserSettings はバックエンドが持つユーザー設定のレコードです。
// JSONフィールド名はバックエンドのスネークケースに合わせる。
type UserSettings struct {
	ID                  string       `json:"id,omitempty"`
	UserID              string       `json:"user_id"`
	FullName            string       `json:"full_name,omitempty"`
	AboutDescription    string       `json:"about_description,omitempty"`
	Theme               Theme        `json:"theme"`
	DefaultRoadmapDepth RoadmapDepth `json:"default_roadmap_depth"`
	DefaultVideoLength  VideoLength  `json:"default_video_length"`
	CreatedAt           string       `json:"created_at,omitempty"`
	UpdatedAt           string       `json:"updated_at,omitempty"`
}

// Preferences は設定レコードをUI語彙に変換します。
func (s *UserSettings) Preferences() UserPreferences {
	if s == nil {
		return DefaultPreferences()
	}
	return UserPreferences{
		Depth:       s.DefaultRoadmapDepth.ToChoice(),
		VideoLength: s.DefaultVideoLength.ToChoice(),
	}
}

// 設定部分更新リクエストDTO（nilのフィールドは変更しない）
type UpdateUserSettingsRequest struct {
	FullName            *string       `json:"full_name,omitempty"`
	AboutDescription    *string       `json:"about_description,omitempty"`
	Theme               *Theme        `json:"theme,omitempty" validate:"omitempty,oneof=light dark"`
	DefaultRoadmapDepth *RoadmapDepth `json:"default_roadmap_depth,omitempty" validate:"omitempty,oneof=basic detailed comprehensive"`
	DefaultVideoLength  *VideoLength  `json:"default_video_length,omitempty" validate:"omitempty,oneof=short medium long"`
}

// DefaultSettings は初期化時に使うハードコードのデフォルト設定です。
func DefaultSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:              userID,
		Theme:               ThemeLight,
		DefaultRoadmapDepth: DepthDetailed,
		DefaultVideoLength:  LengthMedium,
	}
}
