// internal/service/settings_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"skillspark/internal/backend"
	"skillspark/internal/config"
	"skillspark/internal/middleware"
	"skillspark/internal/model"
	"skillspark/internal/store"
)

type SettingsService interface {
	// Get はサーバー障害時にキャッシュ、それも無ければデフォルト設定へ縮退します。
	Get(ctx context.Context, userID string) (*model.UserSettings, error)
	Create(ctx context.Context, userID string, settings *model.UserSettings) (*model.UserSettings, error)
	// Update は楽観更新をしません。サーバーが失敗したら設定は変わりません。
	Update(ctx context.Context, userID string, req *model.UpdateUserSettingsRequest) (*model.UserSettings, error)
	Delete(ctx context.Context, userID string) error

	Preferences(ctx context.Context, userID string) model.UserPreferences
	UpdatePreferences(ctx context.Context, userID string, prefs model.UserPreferences) (*model.UserSettings, error)
	SetTheme(ctx context.Context, userID string, theme model.Theme) (*model.UserSettings, error)
	UpdateProfile(ctx context.Context, userID string, fullName, about *string) (*model.UserSettings, error)

	// ClearUserData はローカルデータを消します。セッションは残します。
	ClearUserData(ctx context.Context, userID string) error
	// DeleteAccount はアカウントとローカルデータ (セッション含む) を消します。
	DeleteAccount(ctx context.Context, userID string) error
}

type settingsService struct {
	client *backend.Client
	store  store.KeyValueStore
}

func NewSettingsService(client *backend.Client, kv store.KeyValueStore) SettingsService {
	return &settingsService{client: client, store: kv}
}

func (s *settingsService) Get(ctx context.Context, userID string) (*model.UserSettings, error) {
	logger := middleware.GetLogger(ctx)
	if userID == "" {
		return nil, model.ErrNotAuthenticated
	}

	data, err := s.client.Get(ctx, "/api/users/settings/"+userID)
	if err != nil {
		logger.Warn("Failed to fetch settings, falling back to cache", "error", err, "user_id", userID)
		if cached := s.cachedSettings(ctx); cached != nil {
			return cached, nil
		}
		return model.DefaultSettings(userID), nil
	}

	var settings model.UserSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		logger.Warn("Failed to decode settings, falling back to cache", "error", err, "user_id", userID)
		if cached := s.cachedSettings(ctx); cached != nil {
			return cached, nil
		}
		return model.DefaultSettings(userID), nil
	}

	s.cacheSettings(ctx, &settings)
	return &settings, nil
}

func (s *settingsService) Create(ctx context.Context, userID string, settings *model.UserSettings) (*model.UserSettings, error) {
	if userID == "" {
		return nil, model.ErrNotAuthenticated
	}
	data, err := s.client.Post(ctx, "/api/users/settings/"+userID, settings)
	if err != nil {
		return nil, err
	}
	return s.decodeAndCache(ctx, data)
}

func (s *settingsService) Update(ctx context.Context, userID string, req *model.UpdateUserSettingsRequest) (*model.UserSettings, error) {
	if userID == "" {
		return nil, model.ErrNotAuthenticated
	}
	data, err := s.client.Put(ctx, "/api/users/settings/"+userID, req)
	if err != nil {
		return nil, err
	}
	return s.decodeAndCache(ctx, data)
}

func (s *settingsService) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return model.ErrNotAuthenticated
	}
	if _, err := s.client.Delete(ctx, "/api/users/settings/"+userID); err != nil {
		return err
	}
	return s.store.Remove(ctx, config.KeySettingsCache)
}

func (s *settingsService) Preferences(ctx context.Context, userID string) model.UserPreferences {
	settings, err := s.Get(ctx, userID)
	if err != nil {
		return model.DefaultPreferences()
	}
	return settings.Preferences()
}

func (s *settingsService) UpdatePreferences(ctx context.Context, userID string, prefs model.UserPreferences) (*model.UserSettings, error) {
	depth := prefs.Depth.ToDepth()
	length := prefs.VideoLength.ToLength()
	req := &model.UpdateUserSettingsRequest{
		DefaultRoadmapDepth: &depth,
		DefaultVideoLength:  &length,
	}
	return s.Update(ctx, userID, req)
}

func (s *settingsService) SetTheme(ctx context.Context, userID string, theme model.Theme) (*model.UserSettings, error) {
	return s.Update(ctx, userID, &model.UpdateUserSettingsRequest{Theme: &theme})
}

func (s *settingsService) UpdateProfile(ctx context.Context, userID string, fullName, about *string) (*model.UserSettings, error) {
	return s.Update(ctx, userID, &model.UpdateUserSettingsRequest{
		FullName:         fullName,
		AboutDescription: about,
	})
}

func (s *settingsService) ClearUserData(ctx context.Context, userID string) error {
	if userID == "" {
		return model.ErrNotAuthenticated
	}
	if _, err := s.client.Delete(ctx, "/api/users/clear-data/"+userID); err != nil {
		return err
	}
	return s.clearLocal(ctx, false)
}

func (s *settingsService) DeleteAccount(ctx context.Context, userID string) error {
	if userID == "" {
		return model.ErrNotAuthenticated
	}
	if _, err := s.client.Delete(ctx, "/api/users/account/"+userID); err != nil {
		return err
	}
	return s.clearLocal(ctx, true)
}

// clearLocal はアプリが書いたローカルキーを削除します。
// includeSession が false の場合、ログインセッションだけは残します。
func (s *settingsService) clearLocal(ctx context.Context, includeSession bool) error {
	keys, err := s.store.AllKeys(ctx)
	if err != nil {
		return fmt.Errorf("settingsService.clearLocal: %w", err)
	}
	for _, key := range keys {
		if !hasAppPrefix(key) {
			continue
		}
		if !includeSession && key == config.KeyUserSession {
			continue
		}
		if err := s.store.Remove(ctx, key); err != nil {
			return fmt.Errorf("settingsService.clearLocal: %w", err)
		}
	}
	return nil
}

func hasAppPrefix(key string) bool {
	return strings.HasPrefix(key, config.LocalKeyPrefix) || strings.HasPrefix(key, config.VideoCacheKeyPrefix)
}

func (s *settingsService) decodeAndCache(ctx context.Context, data json.RawMessage) (*model.UserSettings, error) {
	// 更新系APIは {"settings": {...}} で返す
	var wrapped struct {
		Settings *model.UserSettings `json:"settings"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil || wrapped.Settings == nil {
		return nil, model.NewAppError("SETTINGS_MISSING", "Settings not found in response", "", model.ErrInternalServer)
	}
	s.cacheSettings(ctx, wrapped.Settings)
	return wrapped.Settings, nil
}

func (s *settingsService) cacheSettings(ctx context.Context, settings *model.UserSettings) {
	logger := middleware.GetLogger(ctx)
	encoded, err := json.Marshal(settings)
	if err != nil {
		return
	}
	if err := s.store.Set(ctx, config.KeySettingsCache, string(encoded)); err != nil {
		logger.Warn("Failed to cache settings", "error", err)
	}
}

func (s *settingsService) cachedSettings(ctx context.Context) *model.UserSettings {
	raw, ok, err := s.store.Get(ctx, config.KeySettingsCache)
	if err != nil || !ok {
		return nil
	}
	var settings model.UserSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return nil
	}
	return &settings
}
