// internal/service/roadmap_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"skillspark/internal/backend"
	"skillspark/internal/config"
	"skillspark/internal/middleware"
	"skillspark/internal/model"
	"skillspark/internal/store"
)

type RoadmapService interface {
	// Generate は生成→保存→アクティブ設定まで行い、クイズ生成を裏で起動します。
	Generate(ctx context.Context, userID, topic string) (*model.UserRoadmap, error)
	// ListAll は失敗時にエラーではなく空一覧を返します (画面を壊さないため)。
	ListAll(ctx context.Context, userID string) ([]*model.UserRoadmap, error)
	GetByID(ctx context.Context, userID, roadmapID string) (*model.UserRoadmap, error)
	MostRecent(ctx context.Context, userID string) (*model.UserRoadmap, error)
	Search(ctx context.Context, userID, query string) ([]*model.UserRoadmap, error)
	PointsByLevel(roadmap *model.Roadmap, level model.PointLevel) []model.RoadmapPoint

	UpdateProgress(ctx context.Context, userID, roadmapID, pointID string, isCompleted bool) (*model.UserRoadmap, error)
	// Delete はアクティブ参照の解除のみ行います (サーバー側の削除は未提供)。
	Delete(ctx context.Context, roadmapID string) error
	ClearAll(ctx context.Context) error

	Active(ctx context.Context) (*model.UserRoadmap, error)
	SetActive(ctx context.Context, roadmap *model.UserRoadmap) error
	ClearActive(ctx context.Context) error

	UpdatePlaylistItem(roadmap *model.Roadmap, pointID string, item model.PlaylistItem) error
	InitializePlaylistsForPoint(roadmap *model.Roadmap, pointID string) error
	ArePlaylistsLoaded(roadmap *model.Roadmap, pointID string) (bool, error)
	PlaylistsForPoint(roadmap *model.Roadmap, pointID string) ([]model.PlaylistItem, error)
	LoadPlaylistsForPoint(ctx context.Context, userID string, userRoadmap *model.UserRoadmap, pointID string) ([]model.PlaylistItem, error)
	RegeneratePlaylistsForPoint(ctx context.Context, userID string, userRoadmap *model.UserRoadmap, pointID string) ([]model.PlaylistItem, error)
}

type roadmapService struct {
	client   *backend.Client
	store    store.KeyValueStore
	settings SettingsService
	videos   VideoService
	quizzes  QuizService

	// 走行中のバックグラウンド処理 (シャットダウン時に待てるように)
	bg sync.WaitGroup
}

func NewRoadmapService(client *backend.Client, kv store.KeyValueStore, settings SettingsService, videos VideoService, quizzes QuizService) RoadmapService {
	return &roadmapService{
		client:   client,
		store:    kv,
		settings: settings,
		videos:   videos,
		quizzes:  quizzes,
	}
}

func (s *roadmapService) Generate(ctx context.Context, userID, topic string) (*model.UserRoadmap, error) {
	logger := middleware.GetLogger(ctx)
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, model.ErrInvalidInput
	}
	if userID == "" {
		return nil, model.ErrNotAuthenticated
	}

	// 生成リクエストにはUI語彙のまま設定を載せる
	prefs := s.settings.Preferences(ctx, userID)

	data, err := s.client.Post(ctx, "/api/roadmaps/generate", &model.GenerateRoadmapRequest{
		Topic:           topic,
		UserPreferences: prefs,
		UserID:          userID,
	})
	if err != nil {
		return nil, err
	}

	roadmap, err := decodeRoadmap(data)
	if err != nil {
		return nil, err
	}
	normalizeRoadmap(roadmap, topic)

	// 保存してサーバー発行のIDを得る
	saved, err := s.save(ctx, userID, topic, roadmap)
	if err != nil {
		return nil, err
	}

	if err := s.SetActive(ctx, saved); err != nil {
		logger.Warn("Failed to set active roadmap", "error", err, "roadmap_id", saved.ID)
	}

	// クイズ生成は待たない。失敗してもロードマップ作成は成功扱い。
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.generateQuizInBackground(ctx, saved.ID)
	}()

	return saved, nil
}

func (s *roadmapService) save(ctx context.Context, userID, topic string, roadmap *model.Roadmap) (*model.UserRoadmap, error) {
	data, err := s.client.Post(ctx, "/api/users/roadmaps", &model.SaveRoadmapRequest{
		UserID:      userID,
		Topic:       topic,
		RoadmapData: roadmap,
	})
	if err != nil {
		return nil, err
	}

	var saved model.UserRoadmap
	if err := json.Unmarshal(data, &saved); err != nil || saved.ID == "" {
		return nil, model.NewAppError("ROADMAP_SAVE_MALFORMED", "Saved roadmap not found in response", "", model.ErrInternalServer)
	}
	if saved.RoadmapData == nil {
		saved.RoadmapData = roadmap
	}
	if saved.Topic == "" {
		saved.Topic = topic
	}
	if saved.UserID == "" {
		saved.UserID = userID
	}
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now()
	}
	return &saved, nil
}

func (s *roadmapService) generateQuizInBackground(ctx context.Context, roadmapID string) {
	logger := middleware.GetLogger(ctx)
	// 呼び出し元のリクエストが終わっても処理を続けられるようにする
	bgCtx := middleware.WithLogger(context.WithoutCancel(ctx), logger)

	if err := s.quizzes.EnsureGenerated(bgCtx, roadmapID); err != nil {
		logger.Warn("Background quiz generation failed", "error", err, "roadmap_id", roadmapID)
		return
	}
	logger.Info("Background quiz generation started", "roadmap_id", roadmapID)
}

func (s *roadmapService) ListAll(ctx context.Context, userID string) ([]*model.UserRoadmap, error) {
	logger := middleware.GetLogger(ctx)
	if userID == "" {
		return []*model.UserRoadmap{}, nil
	}

	data, err := s.client.Get(ctx, "/api/users/roadmaps/"+url.PathEscape(userID))
	if err != nil {
		logger.Warn("Failed to list roadmaps, returning empty list", "error", err, "user_id", userID)
		return []*model.UserRoadmap{}, nil
	}

	roadmaps, err := decodeUserRoadmaps(data)
	if err != nil {
		logger.Warn("Failed to decode roadmap list, returning empty list", "error", err)
		return []*model.UserRoadmap{}, nil
	}

	for _, rm := range roadmaps {
		if rm.RoadmapData != nil {
			normalizeRoadmap(rm.RoadmapData, rm.Topic)
		}
	}
	return roadmaps, nil
}

func (s *roadmapService) GetByID(ctx context.Context, userID, roadmapID string) (*model.UserRoadmap, error) {
	roadmaps, err := s.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, rm := range roadmaps {
		if rm.ID == roadmapID {
			return rm, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *roadmapService) MostRecent(ctx context.Context, userID string) (*model.UserRoadmap, error) {
	roadmaps, err := s.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(roadmaps) == 0 {
		return nil, model.ErrNotFound
	}
	sort.SliceStable(roadmaps, func(i, j int) bool {
		return roadmaps[i].CreatedAt.After(roadmaps[j].CreatedAt)
	})
	return roadmaps[0], nil
}

func (s *roadmapService) Search(ctx context.Context, userID, query string) ([]*model.UserRoadmap, error) {
	roadmaps, err := s.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return roadmaps, nil
	}

	matched := []*model.UserRoadmap{}
	for _, rm := range roadmaps {
		if strings.Contains(strings.ToLower(rm.Topic), query) {
			matched = append(matched, rm)
			continue
		}
		if rm.RoadmapData == nil {
			continue
		}
		if strings.Contains(strings.ToLower(rm.RoadmapData.Title), query) ||
			strings.Contains(strings.ToLower(rm.RoadmapData.Description), query) {
			matched = append(matched, rm)
		}
	}
	return matched, nil
}

func (s *roadmapService) PointsByLevel(roadmap *model.Roadmap, level model.PointLevel) []model.RoadmapPoint {
	var points []model.RoadmapPoint
	for _, p := range roadmap.Points {
		if p.Level == level {
			points = append(points, p)
		}
	}
	return points
}

func (s *roadmapService) UpdateProgress(ctx context.Context, userID, roadmapID, pointID string, isCompleted bool) (*model.UserRoadmap, error) {
	logger := middleware.GetLogger(ctx)
	if userID == "" {
		return nil, model.ErrNotAuthenticated
	}

	path := fmt.Sprintf("/api/users/roadmaps/%s/progress/%s", url.PathEscape(roadmapID), url.PathEscape(pointID))
	if _, err := s.client.Post(ctx, path, &model.UpdateProgressRequest{
		UserID:      userID,
		IsCompleted: isCompleted,
	}); err != nil {
		return nil, err
	}

	// リモート成功後にローカルコピーへも反映する (二重書き込み)
	userRoadmap, err := s.GetByID(ctx, userID, roadmapID)
	if err != nil {
		return nil, err
	}
	if userRoadmap.RoadmapData != nil {
		roadmap := userRoadmap.RoadmapData
		if i := roadmap.FindPoint(pointID); i >= 0 {
			roadmap.Points[i].IsCompleted = isCompleted
		}
		progress := roadmap.ComputeProgress()
		roadmap.Progress = &progress
		roadmap.UpdatedAt = time.Now()
	}
	userRoadmap.UpdatedAt = time.Now()

	// アクティブ表示中のロードマップならキャッシュも書き直す
	if active, _ := s.Active(ctx); active != nil && active.ID == roadmapID {
		if err := s.SetActive(ctx, userRoadmap); err != nil {
			logger.Warn("Failed to refresh active roadmap cache", "error", err, "roadmap_id", roadmapID)
		}
	}

	return userRoadmap, nil
}

func (s *roadmapService) Delete(ctx context.Context, roadmapID string) error {
	logger := middleware.GetLogger(ctx)

	// サーバー側に削除APIがまだ無いのでローカル参照の解除だけ行う
	logger.Warn("Roadmap deletion is local-only, server copy is retained", "roadmap_id", roadmapID)

	active, err := s.Active(ctx)
	if err != nil {
		return err
	}
	if active != nil && active.ID == roadmapID {
		return s.ClearActive(ctx)
	}
	return nil
}

func (s *roadmapService) ClearAll(ctx context.Context) error {
	if err := s.ClearActive(ctx); err != nil {
		return err
	}
	return s.videos.ClearCache(ctx)
}

func (s *roadmapService) Active(ctx context.Context) (*model.UserRoadmap, error) {
	logger := middleware.GetLogger(ctx)

	raw, ok, err := s.store.Get(ctx, config.KeyActiveRoadmap)
	if err != nil {
		logger.Warn("Failed to read active roadmap, treating as none", "error", err)
		return nil, nil
	}
	if !ok {
		return nil, nil
	}

	var userRoadmap model.UserRoadmap
	if err := json.Unmarshal([]byte(raw), &userRoadmap); err != nil || userRoadmap.ID == "" {
		logger.Warn("Active roadmap cache is corrupted, clearing it", "error", err)
		_ = s.store.Remove(ctx, config.KeyActiveRoadmap)
		return nil, nil
	}
	return &userRoadmap, nil
}

func (s *roadmapService) SetActive(ctx context.Context, roadmap *model.UserRoadmap) error {
	if roadmap == nil || roadmap.ID == "" {
		return model.ErrInvalidInput
	}
	encoded, err := json.Marshal(roadmap)
	if err != nil {
		return fmt.Errorf("roadmapService.SetActive: %w", err)
	}
	return s.store.Set(ctx, config.KeyActiveRoadmap, string(encoded))
}

func (s *roadmapService) ClearActive(ctx context.Context) error {
	return s.store.Remove(ctx, config.KeyActiveRoadmap)
}

// UpdatePlaylistItem はポイントのプレイリストへ1件を追加または置換します (idで同定)。
func (s *roadmapService) UpdatePlaylistItem(roadmap *model.Roadmap, pointID string, item model.PlaylistItem) error {
	i := roadmap.FindPoint(pointID)
	if i < 0 {
		return model.ErrNotFound
	}
	point := &roadmap.Points[i]
	for j := range point.Playlists {
		if point.Playlists[j].ID == item.ID {
			point.Playlists[j] = item
			return nil
		}
	}
	point.Playlists = append(point.Playlists, item)
	return nil
}

// InitializePlaylistsForPoint は「ロード済み0件」状態にします。
func (s *roadmapService) InitializePlaylistsForPoint(roadmap *model.Roadmap, pointID string) error {
	i := roadmap.FindPoint(pointID)
	if i < 0 {
		return model.ErrNotFound
	}
	if roadmap.Points[i].Playlists == nil {
		roadmap.Points[i].Playlists = []model.PlaylistItem{}
	}
	return nil
}

// ArePlaylistsLoaded は nil (未ロード) と空スライス (ロード済み) を区別します。
func (s *roadmapService) ArePlaylistsLoaded(roadmap *model.Roadmap, pointID string) (bool, error) {
	i := roadmap.FindPoint(pointID)
	if i < 0 {
		return false, model.ErrNotFound
	}
	return roadmap.Points[i].Playlists != nil, nil
}

// PlaylistsForPoint はポイントのプレイリストを返します (未ロードなら nil)。
func (s *roadmapService) PlaylistsForPoint(roadmap *model.Roadmap, pointID string) ([]model.PlaylistItem, error) {
	i := roadmap.FindPoint(pointID)
	if i < 0 {
		return nil, model.ErrNotFound
	}
	return roadmap.Points[i].Playlists, nil
}

func (s *roadmapService) LoadPlaylistsForPoint(ctx context.Context, userID string, userRoadmap *model.UserRoadmap, pointID string) ([]model.PlaylistItem, error) {
	roadmap := userRoadmap.RoadmapData
	if roadmap == nil {
		return nil, model.ErrNotFound
	}
	i := roadmap.FindPoint(pointID)
	if i < 0 {
		return nil, model.ErrNotFound
	}
	if roadmap.Points[i].Playlists != nil {
		return roadmap.Points[i].Playlists, nil
	}
	return s.fetchPlaylistsForPoint(ctx, userID, userRoadmap, i, false)
}

func (s *roadmapService) RegeneratePlaylistsForPoint(ctx context.Context, userID string, userRoadmap *model.UserRoadmap, pointID string) ([]model.PlaylistItem, error) {
	roadmap := userRoadmap.RoadmapData
	if roadmap == nil {
		return nil, model.ErrNotFound
	}
	i := roadmap.FindPoint(pointID)
	if i < 0 {
		return nil, model.ErrNotFound
	}
	return s.fetchPlaylistsForPoint(ctx, userID, userRoadmap, i, true)
}

func (s *roadmapService) fetchPlaylistsForPoint(ctx context.Context, userID string, userRoadmap *model.UserRoadmap, pointIndex int, regenerate bool) ([]model.PlaylistItem, error) {
	logger := middleware.GetLogger(ctx)
	roadmap := userRoadmap.RoadmapData
	point := &roadmap.Points[pointIndex]

	req := &model.GeneratePlaylistsRequest{
		Topic:           roadmap.Topic,
		PointTitle:      point.Title,
		UserPreferences: s.settings.Preferences(ctx, userID),
		UserRoadmapID:   userRoadmap.ID,
		Level:           point.Level,
		UserID:          userID,
	}

	var items []model.PlaylistItem
	var err error
	if regenerate {
		items, err = s.videos.RegeneratePlaylists(ctx, req)
	} else {
		items, err = s.videos.GeneratePlaylists(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.PlaylistItem{}
	}
	point.Playlists = items

	// アクティブキャッシュに載っているロードマップなら反映しておく
	if active, _ := s.Active(ctx); active != nil && active.ID == userRoadmap.ID {
		if err := s.SetActive(ctx, userRoadmap); err != nil {
			logger.Warn("Failed to refresh active roadmap cache", "error", err, "roadmap_id", userRoadmap.ID)
		}
	}
	return items, nil
}

// decodeRoadmap は {"roadmap": {...}} 形式とロードマップ直下形式の両方を受け付けます。
func decodeRoadmap(data json.RawMessage) (*model.Roadmap, error) {
	var wrapped struct {
		Roadmap *model.Roadmap `json:"roadmap"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Roadmap != nil && len(wrapped.Roadmap.Points) > 0 {
		return wrapped.Roadmap, nil
	}

	var roadmap model.Roadmap
	if err := json.Unmarshal(data, &roadmap); err == nil && len(roadmap.Points) > 0 {
		return &roadmap, nil
	}
	return nil, model.NewAppError("ROADMAP_MALFORMED", "Roadmap not found in response", "", model.ErrInternalServer)
}

func decodeUserRoadmaps(data json.RawMessage) ([]*model.UserRoadmap, error) {
	var wrapped struct {
		Roadmaps []*model.UserRoadmap `json:"roadmaps"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Roadmaps != nil {
		return wrapped.Roadmaps, nil
	}

	var roadmaps []*model.UserRoadmap
	if err := json.Unmarshal(data, &roadmaps); err != nil {
		return nil, err
	}
	if roadmaps == nil {
		roadmaps = []*model.UserRoadmap{}
	}
	return roadmaps, nil
}

// normalizeRoadmap はバックエンドが省略しがちなフィールドを補完します。
func normalizeRoadmap(roadmap *model.Roadmap, topic string) {
	if topic == "" {
		topic = roadmap.Topic
	}
	if roadmap.Topic == "" {
		roadmap.Topic = topic
	}
	if roadmap.Title == "" {
		roadmap.Title = model.DefaultTitle(topic)
	}
	if roadmap.Description == "" {
		roadmap.Description = model.DefaultDescription(topic)
	}
	if roadmap.Progress == nil {
		roadmap.Progress = &model.RoadmapProgress{
			CompletedPoints: 0,
			TotalPoints:     len(roadmap.Points),
			Percentage:      0,
		}
	}
}
