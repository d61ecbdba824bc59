// internal/handlers/roadmap_handler.go
package handlers

import (
	"log/slog"
	"net/http"

	"skillspark/internal/model"
	"skillspark/internal/service"
	"skillspark/internal/webutil"

	"github.com/go-chi/chi/v5"
)

type RoadmapHandler struct {
	auth    service.AuthService
	service service.RoadmapService
	logger  *slog.Logger
}

func NewRoadmapHandler(auth service.AuthService, s service.RoadmapService, logger *slog.Logger) *RoadmapHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoadmapHandler{
		auth:    auth,
		service: s,
		logger:  logger,
	}
}

// GenerateRoadmap はトピックからロードマップを生成するハンドラ
func (h *RoadmapHandler) GenerateRoadmap(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GenerateRoadmap"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var req struct {
		Topic string `json:"topic" validate:"required,min=1"`
	}
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

	roadmap, err := h.service.Generate(r.Context(), user.ID, req.Topic)
	if err != nil {
		logger.Error("Error generating roadmap in service", slog.Any("error", err), slog.String("topic", req.Topic))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Roadmap generated", slog.String("roadmap_id", roadmap.ID), slog.String("topic", req.Topic))
	webutil.RespondWithJSON(w, http.StatusCreated, roadmap)
}

// ListRoadmaps は一覧取得 (q= で部分一致検索) のハンドラ
func (h *RoadmapHandler) ListRoadmaps(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "ListRoadmaps"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	roadmaps, err := h.service.Search(r.Context(), user.ID, r.URL.Query().Get("q"))
	if err != nil {
		logger.Error("Error listing roadmaps in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, roadmaps)
}

// GetRoadmap は単一取得のハンドラ
func (h *RoadmapHandler) GetRoadmap(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetRoadmap"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	roadmapID := chi.URLParam(r, "roadmap_id")
	roadmap, err := h.service.GetByID(r.Context(), user.ID, roadmapID)
	if err != nil {
		logger.Warn("Error getting roadmap in service", slog.Any("error", err), slog.String("roadmap_id", roadmapID))
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, roadmap)
}

// GetMostRecent は最新作成のロードマップを返すハンドラ
func (h *RoadmapHandler) GetMostRecent(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetMostRecent"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	roadmap, err := h.service.MostRecent(r.Context(), user.ID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, roadmap)
}

// GetActive はアクティブなロードマップを返すハンドラ (無ければ404)
func (h *RoadmapHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetActive"))

	roadmap, err := h.service.Active(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	if roadmap == nil {
		webutil.HandleError(w, logger, model.ErrNotFound)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, roadmap)
}

// SetActive は指定ロードマップをアクティブにするハンドラ
func (h *RoadmapHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "SetActive"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	roadmapID := chi.URLParam(r, "roadmap_id")
	roadmap, err := h.service.GetByID(r.Context(), user.ID, roadmapID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	if err := h.service.SetActive(r.Context(), roadmap); err != nil {
		logger.Error("Error setting active roadmap", slog.Any("error", err), slog.String("roadmap_id", roadmapID))
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, roadmap)
}

// ClearAllRoadmaps はローカルのロードマップ関連キャッシュを全消去するハンドラ
func (h *RoadmapHandler) ClearAllRoadmaps(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "ClearAllRoadmaps"))

	if err := h.service.ClearAll(r.Context()); err != nil {
		logger.Error("Error clearing roadmap caches", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ClearActive はアクティブポインタを外すハンドラ
func (h *RoadmapHandler) ClearActive(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "ClearActive"))

	if err := h.service.ClearActive(r.Context()); err != nil {
		logger.Error("Error clearing active roadmap", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeleteRoadmap はローカル参照の削除ハンドラ
func (h *RoadmapHandler) DeleteRoadmap(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "DeleteRoadmap"))

	roadmapID := chi.URLParam(r, "roadmap_id")
	if err := h.service.Delete(r.Context(), roadmapID); err != nil {
		logger.Error("Error deleting roadmap", slog.Any("error", err), slog.String("roadmap_id", roadmapID))
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UpdateProgress はポイントの完了状態を切り替えるハンドラ
func (h *RoadmapHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "UpdateProgress"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var req struct {
		IsCompleted bool `json:"isCompleted"`
	}
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, model.ErrInvalidInput)
		return
	}

	roadmapID := chi.URLParam(r, "roadmap_id")
	pointID := chi.URLParam(r, "point_id")
	roadmap, err := h.service.UpdateProgress(r.Context(), user.ID, roadmapID, pointID, req.IsCompleted)
	if err != nil {
		logger.Error("Error updating progress in service",
			slog.Any("error", err),
			slog.String("roadmap_id", roadmapID),
			slog.String("point_id", pointID),
		)
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, roadmap)
}

// ListPoints はレベルで絞ったポイント一覧のハンドラ
func (h *RoadmapHandler) ListPoints(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "ListPoints"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	roadmapID := chi.URLParam(r, "roadmap_id")
	roadmap, err := h.service.GetByID(r.Context(), user.ID, roadmapID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}
	if roadmap.RoadmapData == nil {
		webutil.HandleError(w, logger, model.ErrNotFound)
		return
	}

	level := model.PointLevel(r.URL.Query().Get("level"))
	points := h.service.PointsByLevel(roadmap.RoadmapData, level)
	if points == nil {
		points = []model.RoadmapPoint{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, points)
}

// LoadPlaylists はポイントのプレイリストをロード (未生成なら生成) するハンドラ
func (h *RoadmapHandler) LoadPlaylists(w http.ResponseWriter, r *http.Request) {
	h.playlistOp(w, r, false)
}

// RegeneratePlaylists はポイントのプレイリストを再生成するハンドラ
func (h *RoadmapHandler) RegeneratePlaylists(w http.ResponseWriter, r *http.Request) {
	h.playlistOp(w, r, true)
}

func (h *RoadmapHandler) playlistOp(w http.ResponseWriter, r *http.Request, regenerate bool) {
	logger := h.logger.With(slog.String("handler", "playlistOp"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	roadmapID := chi.URLParam(r, "roadmap_id")
	pointID := chi.URLParam(r, "point_id")

	roadmap, err := h.service.GetByID(r.Context(), user.ID, roadmapID)
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var items []model.PlaylistItem
	if regenerate {
		items, err = h.service.RegeneratePlaylistsForPoint(r.Context(), user.ID, roadmap, pointID)
	} else {
		items, err = h.service.LoadPlaylistsForPoint(r.Context(), user.ID, roadmap, pointID)
	}
	if err != nil {
		logger.Error("Error loading playlists in service",
			slog.Any("error", err),
			slog.String("roadmap_id", roadmapID),
			slog.String("point_id", pointID),
		)
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, items)
}
