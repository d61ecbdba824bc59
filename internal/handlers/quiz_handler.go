// internal/handlers/quiz_handler.go
package handlers

import (
	"log/slog"
	"net/http"
	"sync"

	"skillspark/internal/model"
	"skillspark/internal/service"
	"skillspark/internal/webutil"

	"github.com/go-chi/chi/v5"
)

// quizSessionState はクイズセッションの公開DTOです。
type quizSessionState struct {
	Quiz        *model.Quiz         `json:"quiz"`
	Cursor      int                 `json:"cursor"`
	Answers     []*model.QuizAnswer `json:"answers"`
	AllAnswered bool                `json:"allAnswered"`
	Results     *model.QuizAttempt  `json:"results,omitempty"`
}

type QuizHandler struct {
	auth    service.AuthService
	service service.QuizService
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*service.QuizSession // key: roadmapID
}

func NewQuizHandler(auth service.AuthService, s service.QuizService, logger *slog.Logger) *QuizHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuizHandler{
		auth:     auth,
		service:  s,
		logger:   logger,
		sessions: make(map[string]*service.QuizSession),
	}
}

func (h *QuizHandler) session(roadmapID string) (*service.QuizSession, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[roadmapID]
	return s, ok
}

func toSessionState(s *service.QuizSession) quizSessionState {
	return quizSessionState{
		Quiz:        s.Quiz,
		Cursor:      s.Cursor(),
		Answers:     s.Answers(),
		AllAnswered: s.AllAnswered(),
		Results:     s.Results(),
	}
}

// StartSession はロードマップのクイズセッションを開始するハンドラ
func (h *QuizHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "StartSession"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	roadmapID := chi.URLParam(r, "roadmap_id")
	sess, err := h.service.StartSession(r.Context(), user.ID, roadmapID)
	if err != nil {
		logger.Error("Error starting quiz session in service", slog.Any("error", err), slog.String("roadmap_id", roadmapID))
		webutil.HandleError(w, logger, err)
		return
	}

	h.mu.Lock()
	h.sessions[roadmapID] = sess
	h.mu.Unlock()

	logger.Info("Quiz session started", slog.String("roadmap_id", roadmapID), slog.String("quiz_id", sess.Quiz.ID))
	webutil.RespondWithJSON(w, http.StatusOK, toSessionState(sess))
}

// GetSession は現在のセッション状態を返すハンドラ
func (h *QuizHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetSession"))

	if _, err := h.auth.RequireUser(r.Context()); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	sess, ok := h.session(chi.URLParam(r, "roadmap_id"))
	if !ok {
		webutil.HandleError(w, logger, model.NewAppError("SESSION_NOT_FOUND", "クイズセッションが開始されていません。", "", model.ErrNotFound))
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, toSessionState(sess))
}

// Answer は現在の設問に回答するハンドラ
func (h *QuizHandler) Answer(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "Answer"))

	if _, err := h.auth.RequireUser(r.Context()); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	var req struct {
		OptionIndex int `json:"optionIndex"`
	}
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, model.ErrInvalidInput)
		return
	}

	roadmapID := chi.URLParam(r, "roadmap_id")
	sess, ok := h.session(roadmapID)
	if !ok {
		webutil.HandleError(w, logger, model.NewAppError("SESSION_NOT_FOUND", "クイズセッションが開始されていません。", "", model.ErrNotFound))
		return
	}

	if err := h.service.Answer(r.Context(), sess, req.OptionIndex); err != nil {
		logger.Warn("Error recording answer in service", slog.Any("error", err), slog.String("roadmap_id", roadmapID))
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, toSessionState(sess))
}

// Submit はセッションを採点提出するハンドラ
func (h *QuizHandler) Submit(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "Submit"))

	if _, err := h.auth.RequireUser(r.Context()); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	roadmapID := chi.URLParam(r, "roadmap_id")
	sess, ok := h.session(roadmapID)
	if !ok {
		webutil.HandleError(w, logger, model.NewAppError("SESSION_NOT_FOUND", "クイズセッションが開始されていません。", "", model.ErrNotFound))
		return
	}

	attempt, err := h.service.Submit(r.Context(), sess)
	if err != nil {
		logger.Error("Error submitting quiz in service", slog.Any("error", err), slog.String("roadmap_id", roadmapID))
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Quiz submitted",
		slog.String("roadmap_id", roadmapID),
		slog.Int("score", attempt.Results.Score),
		slog.Int("total", attempt.Results.TotalQuestions),
	)
	webutil.RespondWithJSON(w, http.StatusOK, attempt)
}

// Reset は同じクイズを最初からやり直すハンドラ
func (h *QuizHandler) Reset(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "Reset"))

	if _, err := h.auth.RequireUser(r.Context()); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	sess, ok := h.session(chi.URLParam(r, "roadmap_id"))
	if !ok {
		webutil.HandleError(w, logger, model.NewAppError("SESSION_NOT_FOUND", "クイズセッションが開始されていません。", "", model.ErrNotFound))
		return
	}

	h.service.Reset(sess)
	webutil.RespondWithJSON(w, http.StatusOK, toSessionState(sess))
}

// Regenerate はクイズを作り直すハンドラ (既存セッションは破棄)
func (h *QuizHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "Regenerate"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	roadmapID := chi.URLParam(r, "roadmap_id")
	quiz, err := h.service.Regenerate(r.Context(), user.ID, roadmapID)
	if err != nil {
		logger.Error("Error regenerating quiz in service", slog.Any("error", err), slog.String("roadmap_id", roadmapID))
		webutil.HandleError(w, logger, err)
		return
	}

	h.mu.Lock()
	delete(h.sessions, roadmapID)
	h.mu.Unlock()

	webutil.RespondWithJSON(w, http.StatusOK, quiz)
}

// Statistics は現在ユーザーのクイズ統計を返すハンドラ
func (h *QuizHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "Statistics"))

	user, err := h.auth.RequireUser(r.Context())
	if err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	stats, err := h.service.Statistics(r.Context(), user.ID)
	if err != nil {
		logger.Error("Error getting quiz statistics in service", slog.Any("error", err))
		webutil.HandleError(w, logger, err)
		return
	}
	webutil.RespondWithJSON(w, http.StatusOK, stats)
}

// Attempts はクイズの過去の受験履歴を返すハンドラ
func (h *QuizHandler) Attempts(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "Attempts"))

	if _, err := h.auth.RequireUser(r.Context()); err != nil {
		webutil.HandleError(w, logger, err)
		return
	}

	quizID := chi.URLParam(r, "quiz_id")
	attempts, err := h.service.Attempts(r.Context(), quizID)
	if err != nil {
		logger.Error("Error listing quiz attempts in service", slog.Any("error", err), slog.String("quiz_id", quizID))
		webutil.HandleError(w, logger, err)
		return
	}
	if attempts == nil {
		attempts = []model.QuizAttempt{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, attempts)
}
