// internal/model/video.go
package model

// VideoPage はレベル別ページング取得の1ページ分です。
// ページ遷移は常に置き換え（追記しない）。
type VideoPage struct {
	Videos  []PlaylistItem `json:"videos"`
	HasMore bool           `json:"hasMore"`
}

// PointVideo はポイント単位の動画レコード（レガシー面）です。
type PointVideo struct {
	PointID          string         `json:"pointId"`
	VideoData        []PlaylistItem `json:"video_data"`
	GenerationNumber int            `json:"generation_number"`
	CreatedAt        string         `json:"created_at"`
	UpdatedAt        string         `json:"updated_at"`
}

// VideoGenerationStatus は単一ポイント生成の結果区分です。
type VideoGenerationStatus string

const (
	GenerationStatusGenerated VideoGenerationStatus = "generated"
	GenerationStatusExisting  VideoGenerationStatus = "existing"
	GenerationStatusFailed    VideoGenerationStatus = "failed"
)

// VideoGenerationResult は単一ポイントの動画生成結果です。
type VideoGenerationResult struct {
	Success    bool                  `json:"success"`
	PointID    string                `json:"pointId"`
	Title      string                `json:"title"`
	VideoCount int                   `json:"videoCount"`
	Status     VideoGenerationStatus `json:"status"`
	Error      string                `json:"error,omitempty"`
}

// BulkGenerationSummary は一括生成の集計です。
type BulkGenerationSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// BulkPointError は一括生成で失敗したポイントの詳細です。
type BulkPointError struct {
	PointID string `json:"pointId"`
	Title   string `json:"title"`
	Error   string `json:"error"`
}

// BulkGenerationResult はレベル単位の一括生成結果です。
type BulkGenerationResult struct {
	Success bool                    `json:"success"`
	Summary BulkGenerationSummary   `json:"summary"`
	Results []VideoGenerationResult `json:"results"`
	Errors  []BulkPointError        `json:"errors,omitempty"`
}

// 単一ポイント動画生成リクエストDTO（レガシー point-keyed 面）
type GeneratePointVideosRequest struct {
	UserRoadmapID string     `json:"userRoadmapId"`
	Level         PointLevel `json:"level"`
	Topic         string     `json:"topic"`
	PointID       string     `json:"pointId"`
	Page          int        `json:"page"`
}

// 一括動画生成リクエストDTO
type GenerateBulkVideosRequest struct {
	UserRoadmapID string         `json:"userRoadmapId"`
	Level         PointLevel     `json:"level"`
	Topic         string         `json:"topic"`
	Points        []RoadmapPoint `json:"points"`
	Page          int            `json:"page"`
}

// プレイリスト生成/再生成リクエストDTO（playlists 面）
type GeneratePlaylistsRequest struct {
	Topic           string          `json:"topic"`
	PointTitle      string          `json:"pointTitle"`
	UserPreferences UserPreferences `json:"userPreferences"`
	UserRoadmapID   string          `json:"userRoadmapId,omitempty"`
	Level           PointLevel      `json:"level,omitempty"`
	UserID          string          `json:"userId,omitempty"`
}
