//go:generate mockery --name KeyValueStore --output ./mocks --outpkg mocks --case=underscore
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"skillspark/internal/middleware"
	"skillspark/internal/model"

	"gorm.io/gorm"
)

// KeyValueStore インターフェース
// 端末ローカルのキーバリュー永続化を抽象化する
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	RemoveMatching(ctx context.Context, prefix string) error
	AllKeys(ctx context.Context) ([]string, error)
}

// gormKeyValueStore 構造体
type gormKeyValueStore struct {
	db *gorm.DB
}

// NewGormKeyValueStore コンストラクタ
func NewGormKeyValueStore(db *gorm.DB) KeyValueStore {
	return &gormKeyValueStore{db: db}
}

func (s *gormKeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	logger := middleware.GetLogger(ctx)
	var entry KVEntry
	result := s.db.WithContext(ctx).Where("key = ?", key).First(&entry)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		logger.Error("Error reading entry from local store",
			"error", result.Error,
			"key", key,
		)
		return "", false, fmt.Errorf("gormKeyValueStore.Get: %w", errors.Join(model.ErrStorage, result.Error))
	}
	return entry.Value, true, nil
}

func (s *gormKeyValueStore) Set(ctx context.Context, key, value string) error {
	logger := middleware.GetLogger(ctx)
	entry := KVEntry{Key: key, Value: value}
	// 既存キーは上書き (AsyncStorage.setItem 相当)
	result := s.db.WithContext(ctx).Save(&entry)
	if result.Error != nil {
		logger.Error("Error writing entry to local store",
			"error", result.Error,
			"key", key,
		)
		return fmt.Errorf("gormKeyValueStore.Set: %w", errors.Join(model.ErrStorage, result.Error))
	}
	return nil
}

func (s *gormKeyValueStore) Remove(ctx context.Context, key string) error {
	logger := middleware.GetLogger(ctx)
	result := s.db.WithContext(ctx).Where("key = ?", key).Delete(&KVEntry{})
	if result.Error != nil {
		logger.Error("Error removing entry from local store",
			"error", result.Error,
			"key", key,
		)
		return fmt.Errorf("gormKeyValueStore.Remove: %w", errors.Join(model.ErrStorage, result.Error))
	}
	return nil
}

func (s *gormKeyValueStore) RemoveMatching(ctx context.Context, prefix string) error {
	logger := middleware.GetLogger(ctx)
	keys, err := s.AllKeys(ctx)
	if err != nil {
		return fmt.Errorf("gormKeyValueStore.RemoveMatching: %w", err)
	}
	// SQLのLIKEはキーに含まれる "_" をワイルドカード扱いするため、
	// 全キーを取得して前方一致でフィルタする
	var matched []string
	for _, key := range keys {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Where("key IN ?", matched).Delete(&KVEntry{})
	if result.Error != nil {
		logger.Error("Error removing matching entries from local store",
			"error", result.Error,
			"prefix", prefix,
		)
		return fmt.Errorf("gormKeyValueStore.RemoveMatching: %w", errors.Join(model.ErrStorage, result.Error))
	}
	return nil
}

func (s *gormKeyValueStore) AllKeys(ctx context.Context) ([]string, error) {
	logger := middleware.GetLogger(ctx)
	var keys []string
	result := s.db.WithContext(ctx).Model(&KVEntry{}).Order("key ASC").Pluck("key", &keys)
	if result.Error != nil {
		logger.Error("Error listing keys in local store",
			"error", result.Error,
		)
		return nil, fmt.Errorf("gormKeyValueStore.AllKeys: %w", errors.Join(model.ErrStorage, result.Error))
	}
	return keys, nil
}
