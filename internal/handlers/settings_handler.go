// internal/handlers/settings_handler.go
package handlers

import (
	"log/slog"
	"net/http"

	"skillspark/internal/model"
	"skillspark/internal/service"
	"skillspark/internal/webutil"
)

type SettingsHandler struct {
	auth    service.AuthService
	service service.SettingsService
	logger  *slog.Logger
}

func NewSettingsHandler(auth service.AuthService, s service.SettingsService, logger *slog.Logger) *SettingsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsHandler{
		auth:    auth,
		service: s,
		logger:  logger,
	}
}

// GetSettings は現在のユーザー設定を返すハンドラ
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetSettings"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	settings, err := h.service.Get(r.Context(), user.ID)
	if err != nil {
		logger.Error("Error getting settings in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, settings)
}

// CreateSettings は初期設定の作成ハンドラ
func (h *SettingsHandler) CreateSettings(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "CreateSettings"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var req model.UserSettings
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, model.ErrInvalidInput)
		return
	}

	settings, err := h.service.Create(r.Context(), user.ID, &req)
	if err != nil {
		logger.Error("Error creating settings in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Settings created", slog.String("user_id", user.ID))
	webutil.RespondWithJSON(w, http.StatusCreated, settings)
}

// DeleteSettings は設定レコードの削除ハンドラ (次回取得時はデフォルトに戻る)
func (h *SettingsHandler) DeleteSettings(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "DeleteSettings"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), user.ID); err != nil {
		logger.Error("Error deleting settings in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UpdateSettings は設定の部分更新ハンドラ
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "UpdateSettings"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var req model.UpdateUserSettingsRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_REQUEST_BODY", "リクエストボディの形式が正しくありません。", "", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}

	if err := validateStruct(logger, req); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	settings, err := h.service.Update(r.Context(), user.ID, &req)
	if err != nil {
		logger.Error("Error updating settings in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Settings updated", slog.String("user_id", user.ID))
	webutil.RespondWithJSON(w, http.StatusOK, settings)
}

// UpdatePreferences はUI語彙での設定更新ハンドラ
func (h *SettingsHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "UpdatePreferences"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var prefs model.UserPreferences
	if err := webutil.DecodeJSONBody(r, &prefs); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, model.ErrInvalidInput)
		return
	}

	settings, err := h.service.UpdatePreferences(r.Context(), user.ID, prefs)
	if err != nil {
		logger.Error("Error updating preferences in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, settings)
}

// SetTheme はテーマ切り替えハンドラ
func (h *SettingsHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "SetTheme"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var req struct {
		Theme model.Theme `json:"theme" validate:"required,oneof=light dark"`
	}
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, model.ErrInvalidInput)
		return
	}
	if err := validateStruct(logger, req); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	settings, err := h.service.SetTheme(r.Context(), user.ID, req.Theme)
	if err != nil {
		logger.Error("Error setting theme in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, settings)
}

// UpdateProfile はプロフィール (氏名/自己紹介) 更新ハンドラ
func (h *SettingsHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "UpdateProfile"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var req struct {
		FullName         *string `json:"full_name"`
		AboutDescription *string `json:"about_description"`
	}
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, model.ErrInvalidInput)
		return
	}

	settings, err := h.service.UpdateProfile(r.Context(), user.ID, req.FullName, req.AboutDescription)
	if err != nil {
		logger.Error("Error updating profile in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, settings)
}

// ClearData はローカル・リモートの学習データを消去するハンドラ (セッションは残る)
func (h *SettingsHandler) ClearData(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "ClearData"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	if err := h.service.ClearUserData(r.Context(), user.ID); err != nil {
		logger.Error("Error clearing user data in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("User data cleared", slog.String("user_id", user.ID))
	webutil.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeleteAccount はアカウント削除ハンドラ
func (h *SettingsHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "DeleteAccount"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), user.ID); err != nil {
		logger.Error("Error deleting account in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Account deleted", slog.String("user_id", user.ID))
	webutil.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
