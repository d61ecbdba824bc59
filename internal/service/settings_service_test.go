// internal/service/settings_service_test.go
package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"skillspark/internal/config"
	"skillspark/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_settingsService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 取得成功でキャッシュが更新される", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/users/settings/u1", r.URL.Path)
			w.Write([]byte(`{"success":true,"data":{"user_id":"u1","theme":"dark","default_roadmap_depth":"comprehensive","default_video_length":"long"}}`))
		}))
		defer srv.Close()

		kv := newMemStore()
		svc := NewSettingsService(newTestClient(t, srv), kv)

		settings, err := svc.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, model.ThemeDark, settings.Theme)

		cached, ok, _ := kv.Get(ctx, config.KeySettingsCache)
		require.True(t, ok)
		assert.Contains(t, cached, `"comprehensive"`)
	})

	t.Run("正常系: サーバー障害時はキャッシュへ縮退", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		kv := newMemStore()
		require.NoError(t, kv.Set(ctx, config.KeySettingsCache, `{"user_id":"u1","theme":"dark","default_roadmap_depth":"basic","default_video_length":"short"}`))
		svc := NewSettingsService(newTestClient(t, srv), kv)

		settings, err := svc.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, model.DepthBasic, settings.DefaultRoadmapDepth)
	})

	t.Run("正常系: キャッシュも無ければデフォルト設定", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		svc := NewSettingsService(newTestClient(t, srv), newMemStore())

		settings, err := svc.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, model.ThemeLight, settings.Theme)
		assert.Equal(t, model.DepthDetailed, settings.DefaultRoadmapDepth)
		assert.Equal(t, model.LengthMedium, settings.DefaultVideoLength)
	})

	t.Run("異常系: 未ログイン", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		svc := NewSettingsService(newTestClient(t, srv), newMemStore())
		_, err := svc.Get(ctx, "")
		assert.ErrorIs(t, err, model.ErrNotAuthenticated)
	})
}

func Test_settingsService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 部分更新が settings ラッパーで返る", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "dark", body["theme"])
			// 未指定フィールドは送られない
			assert.NotContains(t, body, "full_name")

			w.Write([]byte(`{"success":true,"data":{"settings":{"user_id":"u1","theme":"dark","default_roadmap_depth":"detailed","default_video_length":"medium"}}}`))
		}))
		defer srv.Close()

		kv := newMemStore()
		svc := NewSettingsService(newTestClient(t, srv), kv)

		settings, err := svc.SetTheme(ctx, "u1", model.ThemeDark)
		require.NoError(t, err)
		assert.Equal(t, model.ThemeDark, settings.Theme)

		// キャッシュにも反映される
		cached, ok, _ := kv.Get(ctx, config.KeySettingsCache)
		require.True(t, ok)
		assert.Contains(t, cached, `"dark"`)
	})

	t.Run("異常系: サーバー失敗時は楽観更新しない", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"success":false,"error":{"message":"invalid theme"}}`))
		}))
		defer srv.Close()

		kv := newMemStore()
		svc := NewSettingsService(newTestClient(t, srv), kv)

		_, err := svc.SetTheme(ctx, "u1", model.ThemeDark)
		require.Error(t, err)
		// キャッシュは書かれない
		_, ok, _ := kv.Get(ctx, config.KeySettingsCache)
		assert.False(t, ok)
	})
}

func Test_settingsService_UpdatePreferences(t *testing.T) {
	ctx := context.Background()

	var gotDepth, gotLength string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotDepth = body["default_roadmap_depth"]
		gotLength = body["default_video_length"]
		w.Write([]byte(`{"success":true,"data":{"settings":{"user_id":"u1","theme":"light","default_roadmap_depth":"` + gotDepth + `","default_video_length":"` + gotLength + `"}}}`))
	}))
	defer srv.Close()

	svc := NewSettingsService(newTestClient(t, srv), newMemStore())

	// UI語彙 → バックエンド語彙の翻訳を通すこと
	_, err := svc.UpdatePreferences(ctx, "u1", model.UserPreferences{
		Depth:       model.ChoiceFast,
		VideoLength: model.ChoiceLong,
	})
	require.NoError(t, err)
	assert.Equal(t, "basic", gotDepth)
	assert.Equal(t, "long", gotLength)
}

func Test_settingsService_ClearUserData(t *testing.T) {
	ctx := context.Background()

	var cleared atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/users/clear-data/u1" && r.Method == http.MethodDelete:
			cleared.Store(true)
			w.Write([]byte(`{"success":true,"data":{}}`))
		case r.URL.Path == "/api/users/account/u1" && r.Method == http.MethodDelete:
			w.Write([]byte(`{"success":true,"data":{}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	seed := func(kv *memStore) {
		require.NoError(t, kv.Set(ctx, config.KeyUserSession, `{"id":"u1","username":"alice"}`))
		require.NoError(t, kv.Set(ctx, config.KeySettingsCache, `{}`))
		require.NoError(t, kv.Set(ctx, config.KeyActiveRoadmap, `{}`))
		require.NoError(t, kv.Set(ctx, config.VideoCacheKeyPrefix+"r1_beginner__1", `{}`))
		require.NoError(t, kv.Set(ctx, "unrelated_key", "keep"))
	}

	t.Run("正常系: セッションと無関係キーだけが残る", func(t *testing.T) {
		kv := newMemStore()
		seed(kv)
		svc := NewSettingsService(newTestClient(t, srv), kv)

		require.NoError(t, svc.ClearUserData(ctx, "u1"))
		assert.True(t, cleared.Load())
		assert.ElementsMatch(t, []string{config.KeyUserSession, "unrelated_key"}, kv.keys())
	})

	t.Run("正常系: アカウント削除はセッションも消す", func(t *testing.T) {
		kv := newMemStore()
		seed(kv)
		svc := NewSettingsService(newTestClient(t, srv), kv)

		require.NoError(t, svc.DeleteAccount(ctx, "u1"))
		assert.ElementsMatch(t, []string{"unrelated_key"}, kv.keys())
	})
}
