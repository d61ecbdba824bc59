// internal/model/user.go
package model

// AuthUser は認証済みユーザーのセッション情報です。
// トークンは使わず {id, username} のペアをそのままケイパビリティとして扱います。
type AuthUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// 登録リクエストDTO
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// ログインリクエストDTO
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
