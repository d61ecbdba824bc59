// internal/model/roadmap.go
package model

import (
	"fmt"
	"math"
	"time"
)

// PointLevel はロードマップポイントの難易度（動画取得のパーティションキーでもある）。
type PointLevel string

const (
	LevelBeginner     PointLevel = "beginner"
	LevelIntermediate PointLevel = "intermediate"
	LevelAdvanced     PointLevel = "advanced"
)

// PlaylistItem はポイントに紐づく学習動画1件です。
type PlaylistItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	VideoURL    string `json:"videoUrl"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
}

// RoadmapPoint はロードマップ内の1ステップです。
// Playlists は nil（未ロード/未生成）と空スライス（ロード済み0件）を区別する。
type RoadmapPoint struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Level       PointLevel     `json:"level"`
	Playlists   []PlaylistItem `json:"playlists"`
	IsCompleted bool           `json:"isCompleted"`
	Order       int            `json:"order"`
}

// RoadmapProgress は完了状況の集計です。
type RoadmapProgress struct {
	CompletedPoints int `json:"completedPoints"`
	TotalPoints     int `json:"totalPoints"`
	Percentage      int `json:"percentage"`
}

// Roadmap は1トピック分の生成済みカリキュラムです。
type Roadmap struct {
	ID          string           `json:"id"`
	Topic       string           `json:"topic"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Points      []RoadmapPoint   `json:"points"`
	Progress    *RoadmapProgress `json:"progress,omitempty"`
}

// ComputeProgress は Points から進捗を再計算します。
// totalPoints==0 のとき percentage は 0。
func (r *Roadmap) ComputeProgress() RoadmapProgress {
	completed := 0
	for _, p := range r.Points {
		if p.IsCompleted {
			completed++
		}
	}
	total := len(r.Points)
	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(completed) / float64(total) * 100))
	}
	return RoadmapProgress{
		CompletedPoints: completed,
		TotalPoints:     total,
		Percentage:      percentage,
	}
}

// FindPoint は pointID からポイントを検索します（見つからなければ -1）。
func (r *Roadmap) FindPoint(pointID string) int {
	for i := range r.Points {
		if r.Points[i].ID == pointID {
			return i
		}
	}
	return -1
}

// DefaultTitle / DefaultDescription はバックエンドがタイトル等を省略した際の補完文字列です。
func DefaultTitle(topic string) string {
	return fmt.Sprintf("%s Development Roadmap", topic)
}

func DefaultDescription(topic string) string {
	return fmt.Sprintf("Complete learning path for %s development", topic)
}

// UserRoadmap はバックエンドのユーザー別ロードマップレコードです。
type UserRoadmap struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Topic       string    `json:"topic"`
	RoadmapData *Roadmap  `json:"roadmapData"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ロードマップ生成リクエストDTO（preferencesはUI語彙のまま送る）
type GenerateRoadmapRequest struct {
	Topic           string          `json:"topic" validate:"required,min=1"`
	UserPreferences UserPreferences `json:"userPreferences"`
	UserID          string          `json:"userId,omitempty"`
}

// ロードマップ保存リクエストDTO
type SaveRoadmapRequest struct {
	UserID      string   `json:"userId"`
	Topic       string   `json:"topic"`
	RoadmapData *Roadmap `json:"roadmapData"`
}

// 進捗トグルリクエストDTO
type UpdateProgressRequest struct {
	UserID      string `json:"userId"`
	IsCompleted bool   `json:"isCompleted"`
}
