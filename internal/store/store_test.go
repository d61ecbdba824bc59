package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// --- テストヘルパー関数 ---
func setupTestStore(t *testing.T) KeyValueStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect database for testing")
	require.NoError(t, db.AutoMigrate(&KVEntry{}))
	// cache=shared のため前のテストのレコードが残ることがある
	require.NoError(t, db.Where("1 = 1").Delete(&KVEntry{}).Error)
	return NewGormKeyValueStore(db)
}

func Test_gormKeyValueStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	t.Run("正常系: 未登録キーはヒットなし", func(t *testing.T) {
		value, ok, err := s.Get(ctx, "@SkillSpark_missing")
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, "", value)
	})

	t.Run("正常系: 保存した値を取得できる", func(t *testing.T) {
		err := s.Set(ctx, "@SkillSpark_user_session", `{"id":"u1"}`)
		require.NoError(t, err)

		value, ok, err := s.Get(ctx, "@SkillSpark_user_session")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"id":"u1"}`, value)
	})

	t.Run("正常系: 同一キーへの保存は上書きになる", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "@SkillSpark_active_roadmap", "r1"))
		require.NoError(t, s.Set(ctx, "@SkillSpark_active_roadmap", "r2"))

		value, ok, err := s.Get(ctx, "@SkillSpark_active_roadmap")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "r2", value)
	})
}

func Test_gormKeyValueStore_Remove(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	t.Run("正常系: 削除後は取得できない", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "k1", "v1"))
		require.NoError(t, s.Remove(ctx, "k1"))

		_, ok, err := s.Get(ctx, "k1")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("正常系: 存在しないキーの削除はエラーにならない", func(t *testing.T) {
		assert.NoError(t, s.Remove(ctx, "no_such_key"))
	})
}

func Test_gormKeyValueStore_RemoveMatching(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	require.NoError(t, s.Set(ctx, "point_videos_r1_beginner_p1_1", "a"))
	require.NoError(t, s.Set(ctx, "point_videos_r1_beginner_p2_1", "b"))
	require.NoError(t, s.Set(ctx, "point_videos_r2_beginner_p1_1", "c"))
	require.NoError(t, s.Set(ctx, "@SkillSpark_user_session", "d"))

	t.Run("正常系: 前方一致したキーだけ削除される", func(t *testing.T) {
		err := s.RemoveMatching(ctx, "point_videos_r1_")
		require.NoError(t, err)

		keys, err := s.AllKeys(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"point_videos_r2_beginner_p1_1", "@SkillSpark_user_session"}, keys)
	})

	t.Run("正常系: アンダースコアはワイルドカード扱いされない", func(t *testing.T) {
		// "point_videosXr2..." のようなキーが誤って消えないことの確認
		require.NoError(t, s.Set(ctx, "pointXvideosXr2_beginner_p1_1", "e"))
		require.NoError(t, s.RemoveMatching(ctx, "point_videos_r2_"))

		keys, err := s.AllKeys(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, "pointXvideosXr2_beginner_p1_1")
		assert.NotContains(t, keys, "point_videos_r2_beginner_p1_1")
	})

	t.Run("正常系: 一致なしでもエラーにならない", func(t *testing.T) {
		assert.NoError(t, s.RemoveMatching(ctx, "zzz_"))
	})
}

func Test_gormKeyValueStore_AllKeys(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	t.Run("正常系: 空ストアでは空のキー一覧", func(t *testing.T) {
		keys, err := s.AllKeys(ctx)
		assert.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("正常系: 登録済みキーが昇順で返る", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "b", "2"))
		require.NoError(t, s.Set(ctx, "a", "1"))

		keys, err := s.AllKeys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, keys)
	})
}
