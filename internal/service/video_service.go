// internal/service/video_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"skillspark/internal/backend"
	"skillspark/internal/config"
	"skillspark/internal/middleware"
	"skillspark/internal/model"
	"skillspark/internal/store"
)

// VideoPager はレベル別動画一覧のページング状態です。
// ページ遷移のたびに Videos は置き換えられます (追記しない)。
type VideoPager struct {
	UserID    string
	RoadmapID string
	Level     model.PointLevel
	Topic     string
	Page      int
	Videos    []model.PlaylistItem
	HasMore   bool
}

type VideoService interface {
	// OpenPager は1ページ目をロードします。1ページ目が空のときは
	// ポイント単位生成APIへフォールバックします。
	OpenPager(ctx context.Context, userID, roadmapID, topic string, level model.PointLevel) (*VideoPager, error)
	NextPage(ctx context.Context, p *VideoPager) error
	PrevPage(ctx context.Context, p *VideoPager) error
	// RegeneratePage は現在のレベルの動画を再生成し、1ページ目に戻します。
	RegeneratePage(ctx context.Context, p *VideoPager) error

	GeneratePointVideos(ctx context.Context, req *model.GeneratePointVideosRequest) (*model.VideoGenerationResult, error)
	GenerateBulk(ctx context.Context, req *model.GenerateBulkVideosRequest) (*model.BulkGenerationResult, error)
	PointVideos(ctx context.Context, roadmapID string, level model.PointLevel) ([]model.PointVideo, error)
	HasPointVideos(ctx context.Context, roadmapID string, level model.PointLevel, pointID string) (bool, error)
	PointsNeedingVideos(roadmap *model.Roadmap, level model.PointLevel) []string

	GeneratePlaylists(ctx context.Context, req *model.GeneratePlaylistsRequest) ([]model.PlaylistItem, error)
	RegeneratePlaylists(ctx context.Context, req *model.GeneratePlaylistsRequest) ([]model.PlaylistItem, error)

	InvalidateLevelCache(ctx context.Context, roadmapID string, level model.PointLevel) error
	ClearCache(ctx context.Context) error
}

type videoService struct {
	client   *backend.Client
	store    store.KeyValueStore
	cacheTTL time.Duration
	now      func() time.Time
}

func NewVideoService(client *backend.Client, kv store.KeyValueStore, cfg config.VideoConfig) VideoService {
	return &videoService{
		client:   client,
		store:    kv,
		cacheTTL: time.Duration(cfg.CacheTTLHours) * time.Hour,
		now:      time.Now,
	}
}

// cachedPage はローカルキャッシュに入れるエントリです。
type cachedPage struct {
	Data      *model.VideoPage `json:"data"`
	Timestamp int64            `json:"timestamp"`
}

func videoCacheKey(roadmapID string, level model.PointLevel, pointID string, page int) string {
	return fmt.Sprintf("%s%s_%s_%s_%d", config.VideoCacheKeyPrefix, roadmapID, level, pointID, page)
}

func (s *videoService) OpenPager(ctx context.Context, userID, roadmapID, topic string, level model.PointLevel) (*VideoPager, error) {
	page, err := s.loadPage(ctx, userID, roadmapID, level, 1)
	if err != nil {
		return nil, err
	}

	// 1ページ目が空 = このレベルの動画が未生成の可能性が高いので生成を試みる
	if len(page.Videos) == 0 {
		generated, genErr := s.generateFirstPage(ctx, userID, roadmapID, topic, level)
		if genErr == nil && generated != nil {
			page = generated
		}
	}

	return &VideoPager{
		UserID:    userID,
		RoadmapID: roadmapID,
		Level:     level,
		Topic:     topic,
		Page:      1,
		Videos:    page.Videos,
		HasMore:   page.HasMore,
	}, nil
}

func (s *videoService) NextPage(ctx context.Context, p *VideoPager) error {
	if !p.HasMore {
		return nil
	}
	page, err := s.loadPage(ctx, p.UserID, p.RoadmapID, p.Level, p.Page+1)
	if err != nil {
		return err
	}
	p.Page++
	p.Videos = page.Videos
	p.HasMore = page.HasMore
	return nil
}

func (s *videoService) PrevPage(ctx context.Context, p *VideoPager) error {
	logger := middleware.GetLogger(ctx)
	if p.Page <= 1 {
		return nil
	}
	prev := p.Page - 1
	page, err := s.loadPage(ctx, p.UserID, p.RoadmapID, p.Level, prev)
	if err != nil {
		return err
	}

	// 戻った先から先に進めるかはサーバーが返さないので次ページを探りに行く。
	// 探り失敗時は楽観的に「まだある」扱い。
	hasMore := true
	if probe, probeErr := s.loadPage(ctx, p.UserID, p.RoadmapID, p.Level, prev+1); probeErr == nil {
		hasMore = len(probe.Videos) > 0
	} else {
		logger.Warn("Failed to probe next page, assuming more videos exist", "error", probeErr, "page", prev+1)
	}

	p.Page = prev
	p.Videos = page.Videos
	p.HasMore = hasMore
	return nil
}

func (s *videoService) RegeneratePage(ctx context.Context, p *VideoPager) error {
	logger := middleware.GetLogger(ctx)

	data, err := s.client.Post(ctx, "/api/playlist/regenerate", map[string]any{
		"userRoadmapId": p.RoadmapID,
		"level":         p.Level,
		"topic":         p.Topic,
		"userId":        p.UserID,
	})
	if err != nil {
		return err
	}

	// 再生成で既存キャッシュは全て無効
	if err := s.InvalidateLevelCache(ctx, p.RoadmapID, p.Level); err != nil {
		logger.Warn("Failed to invalidate video cache after regeneration", "error", err)
	}

	page, err := s.loadPage(ctx, p.UserID, p.RoadmapID, p.Level, 1)
	if err != nil || len(page.Videos) == 0 {
		// 再読み込みに失敗したら再生成レスポンス自体を1ページ目として使う
		var regen model.VideoPage
		if decodeErr := json.Unmarshal(data, &regen); decodeErr == nil && len(regen.Videos) > 0 {
			p.Page = 1
			p.Videos = regen.Videos
			p.HasMore = false
			return nil
		}
		if err != nil {
			return err
		}
	}

	p.Page = 1
	p.Videos = page.Videos
	p.HasMore = page.HasMore
	return nil
}

// loadPage はキャッシュを介してページを取得します。
func (s *videoService) loadPage(ctx context.Context, userID, roadmapID string, level model.PointLevel, pageNum int) (*model.VideoPage, error) {
	logger := middleware.GetLogger(ctx)
	cacheKey := videoCacheKey(roadmapID, level, "", pageNum)

	if cached := s.cachedVideoPage(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	path := fmt.Sprintf("/api/users/videos/%s?level=%s&userId=%s&page=%d",
		url.PathEscape(roadmapID), url.QueryEscape(string(level)), url.QueryEscape(userID), pageNum)
	data, err := s.client.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	var page model.VideoPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("videoService.loadPage: %w", err)
	}

	entry := cachedPage{Data: &page, Timestamp: s.now().UnixMilli()}
	if encoded, err := json.Marshal(entry); err == nil {
		if err := s.store.Set(ctx, cacheKey, string(encoded)); err != nil {
			logger.Warn("Failed to cache video page", "error", err, "key", cacheKey)
		}
	}
	return &page, nil
}

func (s *videoService) cachedVideoPage(ctx context.Context, key string) *model.VideoPage {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return nil
	}
	var entry cachedPage
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.Data == nil {
		return nil
	}
	age := s.now().UnixMilli() - entry.Timestamp
	if age > s.cacheTTL.Milliseconds() {
		return nil
	}
	return entry.Data
}

// generateFirstPage はレベル全体の動画をポイント単位APIで生成し、1ページ目を読み直します。
func (s *videoService) generateFirstPage(ctx context.Context, userID, roadmapID, topic string, level model.PointLevel) (*model.VideoPage, error) {
	logger := middleware.GetLogger(ctx)

	_, err := s.client.Post(ctx, "/api/playlist/generate", map[string]any{
		"userRoadmapId": roadmapID,
		"level":         level,
		"topic":         topic,
		"userId":        userID,
	})
	if err != nil {
		logger.Warn("Video generation fallback failed", "error", err, "roadmap_id", roadmapID, "level", level)
		return nil, err
	}

	if err := s.InvalidateLevelCache(ctx, roadmapID, level); err != nil {
		logger.Warn("Failed to invalidate video cache after generation", "error", err)
	}
	return s.loadPage(ctx, userID, roadmapID, level, 1)
}

func (s *videoService) GeneratePointVideos(ctx context.Context, req *model.GeneratePointVideosRequest) (*model.VideoGenerationResult, error) {
	if req.UserRoadmapID == "" || req.PointID == "" {
		return nil, model.ErrInvalidInput
	}
	data, err := s.client.Post(ctx, "/api/playlist/generate", req)
	if err != nil {
		return nil, err
	}
	var result model.VideoGenerationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("videoService.GeneratePointVideos: %w", err)
	}
	if err := s.InvalidateLevelCache(ctx, req.UserRoadmapID, req.Level); err != nil {
		middleware.GetLogger(ctx).Warn("Failed to invalidate video cache", "error", err)
	}
	return &result, nil
}

func (s *videoService) GenerateBulk(ctx context.Context, req *model.GenerateBulkVideosRequest) (*model.BulkGenerationResult, error) {
	if req.UserRoadmapID == "" || len(req.Points) == 0 {
		return nil, model.ErrInvalidInput
	}
	data, err := s.client.Post(ctx, "/api/playlist/generate-bulk", req)
	if err != nil {
		return nil, err
	}
	var result model.BulkGenerationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("videoService.GenerateBulk: %w", err)
	}
	if err := s.InvalidateLevelCache(ctx, req.UserRoadmapID, req.Level); err != nil {
		middleware.GetLogger(ctx).Warn("Failed to invalidate video cache", "error", err)
	}
	return &result, nil
}

func (s *videoService) PointVideos(ctx context.Context, roadmapID string, level model.PointLevel) ([]model.PointVideo, error) {
	path := fmt.Sprintf("/api/playlist/point-videos/%s/%s", url.PathEscape(roadmapID), url.PathEscape(string(level)))
	data, err := s.client.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	var videos []model.PointVideo
	if err := json.Unmarshal(data, &videos); err != nil {
		return nil, fmt.Errorf("videoService.PointVideos: %w", err)
	}
	return videos, nil
}

// HasPointVideos はポイントに動画が1本以上保存済みかを返します。
func (s *videoService) HasPointVideos(ctx context.Context, roadmapID string, level model.PointLevel, pointID string) (bool, error) {
	videos, err := s.PointVideos(ctx, roadmapID, level)
	if err != nil {
		if backend.IsStatus(err, http.StatusNotFound) {
			return false, nil
		}
		return false, err
	}
	for i := range videos {
		if videos[i].PointID == pointID && len(videos[i].VideoData) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// PointsNeedingVideos はプレイリスト未ロードのポイントIDを返します。
// 空スライスがロード済みを意味するので nil だけを未ロード扱いします。
func (s *videoService) PointsNeedingVideos(roadmap *model.Roadmap, level model.PointLevel) []string {
	var ids []string
	for i := range roadmap.Points {
		p := &roadmap.Points[i]
		if p.Level == level && p.Playlists == nil {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func (s *videoService) GeneratePlaylists(ctx context.Context, req *model.GeneratePlaylistsRequest) ([]model.PlaylistItem, error) {
	return s.playlistCall(ctx, "/api/playlists/generate", req)
}

func (s *videoService) RegeneratePlaylists(ctx context.Context, req *model.GeneratePlaylistsRequest) ([]model.PlaylistItem, error) {
	return s.playlistCall(ctx, "/api/playlists/regenerate", req)
}

func (s *videoService) playlistCall(ctx context.Context, path string, req *model.GeneratePlaylistsRequest) ([]model.PlaylistItem, error) {
	if req.Topic == "" || req.PointTitle == "" {
		return nil, model.ErrInvalidInput
	}
	data, err := s.client.Post(ctx, path, req)
	if err != nil {
		return nil, err
	}

	// {"playlists": [...]} と素の配列の両方があり得る
	var wrapped struct {
		Playlists []model.PlaylistItem `json:"playlists"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Playlists != nil {
		return wrapped.Playlists, nil
	}
	var items []model.PlaylistItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("videoService.playlistCall: %w", err)
	}
	return items, nil
}

func (s *videoService) InvalidateLevelCache(ctx context.Context, roadmapID string, level model.PointLevel) error {
	prefix := fmt.Sprintf("%s%s_%s_", config.VideoCacheKeyPrefix, roadmapID, level)
	return s.store.RemoveMatching(ctx, prefix)
}

func (s *videoService) ClearCache(ctx context.Context) error {
	return s.store.RemoveMatching(ctx, config.VideoCacheKeyPrefix)
}
