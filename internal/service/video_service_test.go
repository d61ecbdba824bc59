// internal/service/video_service_test.go
package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"skillspark/internal/config"
	"skillspark/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVideoTestService(t *testing.T, srv *httptest.Server, kv *memStore) VideoService {
	t.Helper()
	return NewVideoService(newTestClient(t, srv), kv, config.VideoConfig{CacheTTLHours: 24})
}

func Test_videoService_OpenPager(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 1ページ目を取得してキャッシュする", func(t *testing.T) {
		var fetches atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/users/videos/rm1", r.URL.Path)
			assert.Equal(t, "beginner", r.URL.Query().Get("level"))
			assert.Equal(t, "u1", r.URL.Query().Get("userId"))
			fetches.Add(1)
			w.Write([]byte(`{"success":true,"data":{"videos":[{"id":"v1","title":"Intro","videoUrl":"https://example.com/v1"}],"hasMore":true}}`))
		}))
		defer srv.Close()

		kv := newMemStore()
		svc := newVideoTestService(t, srv, kv)

		pager, err := svc.OpenPager(ctx, "u1", "rm1", "golang", model.LevelBeginner)
		require.NoError(t, err)
		assert.Equal(t, 1, pager.Page)
		assert.Len(t, pager.Videos, 1)
		assert.True(t, pager.HasMore)

		// 2回目はキャッシュから
		_, err = svc.OpenPager(ctx, "u1", "rm1", "golang", model.LevelBeginner)
		require.NoError(t, err)
		assert.Equal(t, int32(1), fetches.Load())
	})

	t.Run("正常系: 1ページ目が空なら生成にフォールバック", func(t *testing.T) {
		var generated atomic.Bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/users/videos/rm1":
				if generated.Load() {
					w.Write([]byte(`{"success":true,"data":{"videos":[{"id":"v1","title":"Generated"}],"hasMore":false}}`))
				} else {
					w.Write([]byte(`{"success":true,"data":{"videos":[],"hasMore":false}}`))
				}
			case "/api/playlist/generate":
				generated.Store(true)
				w.Write([]byte(`{"success":true,"data":{"status":"generated"}}`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		svc := newVideoTestService(t, srv, newMemStore())
		pager, err := svc.OpenPager(ctx, "u1", "rm1", "golang", model.LevelBeginner)
		require.NoError(t, err)
		assert.True(t, generated.Load())
		require.Len(t, pager.Videos, 1)
		assert.Equal(t, "Generated", pager.Videos[0].Title)
	})

	t.Run("正常系: 生成も失敗したら空ページのまま返す", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/users/videos/rm1":
				w.Write([]byte(`{"success":true,"data":{"videos":[],"hasMore":false}}`))
			default:
				w.WriteHeader(http.StatusInternalServerError)
			}
		}))
		defer srv.Close()

		svc := newVideoTestService(t, srv, newMemStore())
		pager, err := svc.OpenPager(ctx, "u1", "rm1", "golang", model.LevelBeginner)
		require.NoError(t, err)
		assert.Empty(t, pager.Videos)
	})
}

func Test_videoService_Paging(t *testing.T) {
	ctx := context.Background()

	pageBody := func(page int, hasMore bool) string {
		return fmt.Sprintf(`{"success":true,"data":{"videos":[{"id":"v%d","title":"Page %d"}],"hasMore":%t}}`, page, page, hasMore)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			w.Write([]byte(pageBody(1, true)))
		case "2":
			w.Write([]byte(pageBody(2, true)))
		case "3":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte(`{"success":true,"data":{"videos":[],"hasMore":false}}`))
		}
	}))
	defer srv.Close()

	svc := newVideoTestService(t, srv, newMemStore())

	pager, err := svc.OpenPager(ctx, "u1", "rm1", "golang", model.LevelBeginner)
	require.NoError(t, err)

	t.Run("正常系: 次ページで一覧が置き換わる", func(t *testing.T) {
		require.NoError(t, svc.NextPage(ctx, pager))
		assert.Equal(t, 2, pager.Page)
		require.Len(t, pager.Videos, 1)
		assert.Equal(t, "Page 2", pager.Videos[0].Title)
	})

	t.Run("正常系: 前ページへ戻ると続きの有無を探り直す", func(t *testing.T) {
		require.NoError(t, svc.PrevPage(ctx, pager))
		assert.Equal(t, 1, pager.Page)
		assert.Equal(t, "Page 1", pager.Videos[0].Title)
		// 2ページ目が存在するので hasMore
		assert.True(t, pager.HasMore)
	})

	t.Run("正常系: 探りが失敗したら楽観的に hasMore", func(t *testing.T) {
		pager.Page = 3
		// 2ページ目へ戻る。3ページ目の探りは500で失敗する
		require.NoError(t, svc.PrevPage(ctx, pager))
		assert.Equal(t, 2, pager.Page)
		assert.True(t, pager.HasMore)
	})

	t.Run("正常系: 1ページ目からはこれ以上戻れない", func(t *testing.T) {
		pager.Page = 1
		before := pager.Videos
		require.NoError(t, svc.PrevPage(ctx, pager))
		assert.Equal(t, 1, pager.Page)
		assert.Equal(t, before, pager.Videos)
	})
}

func Test_videoService_CacheTTL(t *testing.T) {
	ctx := context.Background()

	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Write([]byte(`{"success":true,"data":{"videos":[{"id":"v1"}],"hasMore":false}}`))
	}))
	defer srv.Close()

	kv := newMemStore()
	svc := newVideoTestService(t, srv, kv)

	_, err := svc.OpenPager(ctx, "u1", "rm1", "golang", model.LevelBeginner)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetches.Load())

	// 25時間進める
	base := time.Now()
	svc.(*videoService).now = func() time.Time { return base.Add(25 * time.Hour) }

	_, err = svc.OpenPager(ctx, "u1", "rm1", "golang", model.LevelBeginner)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetches.Load(), "expired cache entry should be refetched")
}

func Test_videoService_RegeneratePage(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 再生成後に1ページ目を読み直す", func(t *testing.T) {
		var regenerated atomic.Bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/playlist/regenerate":
				regenerated.Store(true)
				w.Write([]byte(`{"success":true,"data":{"videos":[{"id":"regen1"}],"hasMore":false}}`))
			case "/api/users/videos/rm1":
				if regenerated.Load() {
					w.Write([]byte(`{"success":true,"data":{"videos":[{"id":"fresh1","title":"Fresh"}],"hasMore":true}}`))
				} else {
					w.Write([]byte(`{"success":true,"data":{"videos":[{"id":"old1"}],"hasMore":false}}`))
				}
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		svc := newVideoTestService(t, srv, newMemStore())
		pager, err := svc.OpenPager(ctx, "u1", "rm1", "golang", model.LevelBeginner)
		require.NoError(t, err)

		require.NoError(t, svc.RegeneratePage(ctx, pager))
		assert.Equal(t, 1, pager.Page)
		require.Len(t, pager.Videos, 1)
		assert.Equal(t, "fresh1", pager.Videos[0].ID)
		assert.True(t, pager.HasMore)
	})

	t.Run("正常系: 読み直し失敗時は再生成レスポンスを表示する", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/playlist/regenerate":
				w.Write([]byte(`{"success":true,"data":{"videos":[{"id":"regen1","title":"Regen"}],"hasMore":true}}`))
			case "/api/users/videos/rm1":
				w.WriteHeader(http.StatusInternalServerError)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		svc := newVideoTestService(t, srv, newMemStore())
		pager := &VideoPager{UserID: "u1", RoadmapID: "rm1", Level: model.LevelBeginner, Topic: "golang", Page: 2}

		require.NoError(t, svc.RegeneratePage(ctx, pager))
		assert.Equal(t, 1, pager.Page)
		assert.Equal(t, "Regen", pager.Videos[0].Title)
		// 再生成レスポンスからはページングを信用しない
		assert.False(t, pager.HasMore)
	})
}

func Test_videoService_BulkAndCache(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/playlist/generate-bulk":
			w.Write([]byte(`{"success":true,"data":{"success":true,"summary":{"total":2,"successful":1,"failed":1},"results":[{"success":true,"pointId":"p1","status":"generated"}],"errors":[{"pointId":"p2","title":"T","error":"boom"}]}}`))
		case "/api/playlist/point-videos/rm1/beginner":
			w.Write([]byte(`{"success":true,"data":[{"pointId":"p1","video_data":[{"id":"v1","title":"A"}]},{"pointId":"p2","video_data":[]}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	kv := newMemStore()
	svc := newVideoTestService(t, srv, kv)

	t.Run("正常系: 一括生成でレベルのキャッシュが飛ぶ", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, config.VideoCacheKeyPrefix+"rm1_beginner__1", "{}"))
		require.NoError(t, kv.Set(ctx, config.VideoCacheKeyPrefix+"rm1_advanced__1", "{}"))

		result, err := svc.GenerateBulk(ctx, &model.GenerateBulkVideosRequest{
			UserRoadmapID: "rm1",
			Level:         model.LevelBeginner,
			Topic:         "golang",
			Points:        []model.RoadmapPoint{{ID: "p1"}, {ID: "p2"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Summary.Successful)
		require.Len(t, result.Errors, 1)

		keys := kv.keys()
		assert.NotContains(t, keys, config.VideoCacheKeyPrefix+"rm1_beginner__1")
		assert.Contains(t, keys, config.VideoCacheKeyPrefix+"rm1_advanced__1")
	})

	t.Run("異常系: ポイント無しの一括生成", func(t *testing.T) {
		_, err := svc.GenerateBulk(ctx, &model.GenerateBulkVideosRequest{UserRoadmapID: "rm1"})
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("正常系: 保存済み動画の有無判定", func(t *testing.T) {
		has, err := svc.HasPointVideos(ctx, "rm1", model.LevelBeginner, "p1")
		require.NoError(t, err)
		assert.True(t, has)

		// video_data が空なら「無し」扱い
		has, err = svc.HasPointVideos(ctx, "rm1", model.LevelBeginner, "p2")
		require.NoError(t, err)
		assert.False(t, has)

		// 404はエラーではなく「無し」
		has, err = svc.HasPointVideos(ctx, "rm9", model.LevelBeginner, "p1")
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("正常系: 未ロードポイントの列挙はnilだけを数える", func(t *testing.T) {
		roadmap := &model.Roadmap{Points: []model.RoadmapPoint{
			{ID: "p1", Level: model.LevelBeginner},                                    // 未ロード
			{ID: "p2", Level: model.LevelBeginner, Playlists: []model.PlaylistItem{}}, // ロード済み0件
			{ID: "p3", Level: model.LevelAdvanced},                                    // 別レベル
		}}
		assert.Equal(t, []string{"p1"}, svc.PointsNeedingVideos(roadmap, model.LevelBeginner))
	})
}
