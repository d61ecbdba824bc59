// internal/service/auth_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"

	"skillspark/internal/backend"
	"skillspark/internal/config"
	"skillspark/internal/middleware"
	"skillspark/internal/model"
	"skillspark/internal/store"
)

type AuthService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthUser, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.AuthUser, error)
	Logout(ctx context.Context) error
	// CurrentUser はセッション未保存・破損時に (nil, nil) を返します。
	CurrentUser(ctx context.Context) (*model.AuthUser, error)
	// RequireUser は未ログイン時に model.ErrNotAuthenticated を返します。
	RequireUser(ctx context.Context) (*model.AuthUser, error)
}

type authService struct {
	client *backend.Client
	store  store.KeyValueStore
}

func NewAuthService(client *backend.Client, kv store.KeyValueStore) AuthService {
	return &authService{client: client, store: kv}
}

func (s *authService) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthUser, error) {
	if req.Username == "" || req.Password == "" {
		return nil, model.ErrInvalidInput
	}
	data, err := s.client.Post(ctx, "/api/users/register", req)
	if err != nil {
		return nil, err
	}
	return s.saveSession(ctx, data)
}

func (s *authService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthUser, error) {
	if req.Username == "" || req.Password == "" {
		return nil, model.ErrInvalidInput
	}
	data, err := s.client.Post(ctx, "/api/users/login", req)
	if err != nil {
		return nil, err
	}
	return s.saveSession(ctx, data)
}

func (s *authService) Logout(ctx context.Context) error {
	if err := s.store.Remove(ctx, config.KeyUserSession); err != nil {
		return fmt.Errorf("authService.Logout: %w", err)
	}
	// 旧バージョンが残したキーも掃除する
	if err := s.store.Remove(ctx, config.KeyLegacyUser); err != nil {
		return fmt.Errorf("authService.Logout: %w", err)
	}
	return nil
}

func (s *authService) CurrentUser(ctx context.Context) (*model.AuthUser, error) {
	logger := middleware.GetLogger(ctx)

	raw, ok, err := s.store.Get(ctx, config.KeyUserSession)
	if err != nil {
		// 読み取り失敗は未ログイン扱いに落とす
		logger.Warn("Failed to read user session, treating as signed out", "error", err)
		return nil, nil
	}
	if !ok {
		// 旧キーからの移行
		return s.migrateLegacySession(ctx)
	}

	var user model.AuthUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID == "" {
		logger.Warn("User session is corrupted, treating as signed out", "error", err)
		return nil, nil
	}
	return &user, nil
}

func (s *authService) RequireUser(ctx context.Context) (*model.AuthUser, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.ErrNotAuthenticated
	}
	return user, nil
}

// saveSession はAPIレスポンスからユーザーを取り出してセッションに保存します。
// data は {"user": {...}} 形式とユーザー直下形式の両方があり得ます。
func (s *authService) saveSession(ctx context.Context, data json.RawMessage) (*model.AuthUser, error) {
	user, err := decodeAuthUser(data)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("authService.saveSession: %w", err)
	}
	if err := s.store.Set(ctx, config.KeyUserSession, string(encoded)); err != nil {
		return nil, fmt.Errorf("authService.saveSession: %w", err)
	}
	return user, nil
}

func (s *authService) migrateLegacySession(ctx context.Context) (*model.AuthUser, error) {
	logger := middleware.GetLogger(ctx)

	raw, ok, err := s.store.Get(ctx, config.KeyLegacyUser)
	if err != nil || !ok {
		return nil, nil
	}

	var user model.AuthUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID == "" {
		return nil, nil
	}

	encoded, _ := json.Marshal(&user)
	if err := s.store.Set(ctx, config.KeyUserSession, string(encoded)); err != nil {
		logger.Warn("Failed to migrate legacy user session", "error", err)
	} else {
		_ = s.store.Remove(ctx, config.KeyLegacyUser)
		logger.Info("Migrated legacy user session", "user_id", user.ID)
	}
	return &user, nil
}

func decodeAuthUser(data json.RawMessage) (*model.AuthUser, error) {
	var wrapped struct {
		User *model.AuthUser `json:"user"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.User != nil && wrapped.User.ID != "" {
		return wrapped.User, nil
	}

	var user model.AuthUser
	if err := json.Unmarshal(data, &user); err == nil && user.ID != "" {
		return &user, nil
	}
	return nil, model.NewAppError("AUTH_USER_MISSING", "User not found in response", "", model.ErrInternalServer)
}
