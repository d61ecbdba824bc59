// internal/handlers/video_handler.go
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"skillspark/internal/model"
	"skillspark/internal/service"
	"skillspark/internal/webutil"

	"github.com/go-chi/chi/v5"
)

// pagerState はページャの公開DTOです。
type pagerState struct {
	RoadmapID string               `json:"roadmapId"`
	Level     model.PointLevel     `json:"level"`
	Page      int                  `json:"page"`
	Videos    []model.PlaylistItem `json:"videos"`
	HasMore   bool                 `json:"hasMore"`
}

type VideoHandler struct {
	auth    service.AuthService
	service service.VideoService
	logger  *slog.Logger

	mu     sync.Mutex
	pagers map[string]*service.VideoPager // key: roadmapID|level
}

func NewVideoHandler(auth service.AuthService, s service.VideoService, logger *slog.Logger) *VideoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoHandler{
		auth:    auth,
		service: s,
		logger:  logger,
		pagers:  make(map[string]*service.VideoPager),
	}
}

func pagerKey(roadmapID string, level model.PointLevel) string {
	return roadmapID + "|" + string(level)
}

func (h *VideoHandler) pager(roadmapID string, level model.PointLevel) (*service.VideoPager, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pagers[pagerKey(roadmapID, level)]
	return p, ok
}

func toPagerState(p *service.VideoPager) pagerState {
	videos := p.Videos
	if videos == nil {
		videos = []model.PlaylistItem{}
	}
	return pagerState{
		RoadmapID: p.RoadmapID,
		Level:     p.Level,
		Page:      p.Page,
		Videos:    videos,
		HasMore:   p.HasMore,
	}
}

// OpenPager はレベル別動画ページャを開く (1ページ目ロード) ハンドラ
func (h *VideoHandler) OpenPager(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "OpenPager"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var req struct {
		Topic string           `json:"topic" validate:"required"`
		Level model.PointLevel `json:"level" validate:"required,oneof=beginner intermediate advanced"`
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

	roadmapID := chi.URLParam(r, "roadmap_id")
	p, err := h.service.OpenPager(r.Context(), user.ID, roadmapID, req.Topic, req.Level)
	if err != nil {
		logger.Error("Error opening video pager in service",
			slog.Any("error", err),
			slog.String("roadmap_id", roadmapID),
			slog.String("level", string(req.Level)),
		)
		webutil.HandleError(w, logger, err)
		return
	}

	h.mu.Lock()
	h.pagers[pagerKey(roadmapID, req.Level)] = p
	h.mu.Unlock()

	webutil.RespondWithJSON(w, http.StatusOK, toPagerState(p))
}

// NextPage は次ページへ進むハンドラ
func (h *VideoHandler) NextPage(w http.ResponseWriter, r *http.Request) {
	h.pagerOp(w, r, "NextPage", h.service.NextPage)
}

// PrevPage は前ページへ戻るハンドラ
func (h *VideoHandler) PrevPage(w http.ResponseWriter, r *http.Request) {
	h.pagerOp(w, r, "PrevPage", h.service.PrevPage)
}

// RegeneratePage は現在レベルの動画を再生成するハンドラ
func (h *VideoHandler) RegeneratePage(w http.ResponseWriter, r *http.Request) {
	h.pagerOp(w, r, "RegeneratePage", h.service.RegeneratePage)
}

func (h *VideoHandler) pagerOp(w http.ResponseWriter, r *http.Request, name string, op func(ctx context.Context, p *service.VideoPager) error) {
	logger := h.logger.With(slog.String("handler", name))

	if _, err := h.auth.RequireUser(r.Context()); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	roadmapID := chi.URLParam(r, "roadmap_id")
	level := model.PointLevel(r.URL.Query().Get("level"))
	p, ok := h.pager(roadmapID, level)
	if !ok {
		webutil.HandleError(w, logger, model.NewAppError("PAGER_NOT_OPEN", "動画一覧が開かれていません。", "", model.ErrNotFound))
		return
	}

	if err := op(r.Context(), p); err != nil {
		logger.Error("Error in video pager operation",
			slog.Any("error", err),
			slog.String("roadmap_id", roadmapID),
			slog.String("level", string(level)),
		)
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, toPagerState(p))
}

// GeneratePointVideos は単一ポイントの動画生成ハンドラ
func (h *VideoHandler) GeneratePointVideos(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GeneratePointVideos"))

	if _, err := h.auth.RequireUser(r.Context()); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var req model.GeneratePointVideosRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, model.ErrInvalidInput)
		return
	}

	result, err := h.service.GeneratePointVideos(r.Context(), &req)
	if err != nil {
		logger.Error("Error generating point videos in service", slog.Any("error", err), slog.String("point_id", req.PointID))
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, result)
}

// GenerateBulk は複数ポイントの一括動画生成ハンドラ
func (h *VideoHandler) GenerateBulk(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GenerateBulk"))

	if _, err := h.auth.RequireUser(r.Context()); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var req model.GenerateBulkVideosRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, model.ErrInvalidInput)
		return
	}

	result, err := h.service.GenerateBulk(r.Context(), &req)
	if err != nil {
		logger.Error("Error generating bulk videos in service", slog.Any("error", err), slog.String("roadmap_id", req.UserRoadmapID))
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, result)
}

// PointVideos は保存済みポイント動画の一覧ハンドラ
func (h *VideoHandler) PointVideos(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PointVideos"))

	if _, err := h.auth.RequireUser(r.Context()); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	roadmapID := chi.URLParam(r, "roadmap_id")
	level := model.PointLevel(r.URL.Query().Get("level"))
	videos, err := h.service.PointVideos(r.Context(), roadmapID, level)
	if err != nil {
		logger.Error("Error listing point videos in service", slog.Any("error", err), slog.String("roadmap_id", roadmapID))
		webutil.HandleError(w, logger, err)
		return
	}
	if videos == nil {
		videos = []model.PointVideo{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, videos)
}
