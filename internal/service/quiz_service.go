// internal/service/quiz_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"skillspark/internal/backend"
	"skillspark/internal/config"
	"skillspark/internal/middleware"
	"skillspark/internal/model"
)

// QuizSession は1人のユーザーが1つのクイズを解いている間の状態です。
// 回答の保存はバックエンドと非同期なので、この構造体が正とみなされます。
type QuizSession struct {
	Quiz   *model.Quiz
	UserID string

	mu        sync.Mutex
	wg        sync.WaitGroup
	answers   []*model.QuizAnswer
	cursor    int
	results   *model.QuizAttempt
	startedAt time.Time
	shownAt   time.Time
}

// Cursor は現在表示中の設問インデックスです。
func (s *QuizSession) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Answers は回答のスナップショットを返します (未回答はnil)。
func (s *QuizSession) Answers() []*model.QuizAnswer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.QuizAnswer, len(s.answers))
	copy(out, s.answers)
	return out
}

func (s *QuizSession) Results() *model.QuizAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// AllAnswered は提出可能かどうか (全問回答済みか) を返します。
func (s *QuizSession) AllAnswered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allAnsweredLocked()
}

func (s *QuizSession) allAnsweredLocked() bool {
	for _, a := range s.answers {
		if a == nil {
			return false
		}
	}
	return len(s.answers) > 0
}

// Wait は回答保存と自動遷移のバックグラウンド処理の完了を待ちます。
func (s *QuizSession) Wait() {
	s.wg.Wait()
}

type QuizService interface {
	// StartSession はクイズを取得し、保存済み進捗があれば途中から再開します。
	// クイズ未生成 (404) のときはリトライで生成完了を待ち、それでも無ければ
	// 生成をリクエストします。
	StartSession(ctx context.Context, userID, roadmapID string) (*QuizSession, error)
	// Answer は現在の設問への回答を記録します。保存は非同期で行われ、
	// 失敗してもセッションは止まりません。
	Answer(ctx context.Context, session *QuizSession, optionIndex int) error
	Submit(ctx context.Context, session *QuizSession) (*model.QuizAttempt, error)
	// Reset は同じクイズを最初からやり直します (再取得しない)。
	Reset(session *QuizSession)

	EnsureGenerated(ctx context.Context, roadmapID string) error
	Regenerate(ctx context.Context, userID, roadmapID string) (*model.Quiz, error)
	Statistics(ctx context.Context, userID string) (*model.QuizStatistics, error)
	Attempts(ctx context.Context, quizID string) ([]model.QuizAttempt, error)
}

type quizService struct {
	client *backend.Client
	cfg    config.QuizConfig
}

func NewQuizService(client *backend.Client, cfg config.QuizConfig) QuizService {
	return &quizService{client: client, cfg: cfg}
}

func (s *quizService) StartSession(ctx context.Context, userID, roadmapID string) (*QuizSession, error) {
	if userID == "" {
		return nil, model.ErrNotAuthenticated
	}
	if roadmapID == "" {
		return nil, model.ErrInvalidInput
	}

	quiz, err := s.fetchQuizWithRetry(ctx, userID, roadmapID)
	if err != nil {
		return nil, err
	}

	session := &QuizSession{
		Quiz:      quiz,
		UserID:    userID,
		answers:   make([]*model.QuizAnswer, len(quiz.QuizData.Questions)),
		startedAt: time.Now(),
		shownAt:   time.Now(),
	}

	s.restoreProgress(ctx, session)
	return session, nil
}

// fetchQuizWithRetry はクイズを取得します。404はバックエンドの非同期生成が
// まだ終わっていないだけの可能性があるため、間隔を置いて取り直します。
// リトライを使い切ったら生成APIを叩きます。404以外のエラーは即座に返します。
func (s *quizService) fetchQuizWithRetry(ctx context.Context, userID, roadmapID string) (*model.Quiz, error) {
	logger := middleware.GetLogger(ctx)
	path := fmt.Sprintf("/api/quizzes/%s?userId=%s", url.PathEscape(roadmapID), url.QueryEscape(userID))

	for attempt := 0; attempt <= s.cfg.LookupRetries; attempt++ {
		if attempt > 0 {
			logger.Info("Quiz not ready yet, retrying",
				"roadmap_id", roadmapID,
				"attempt", attempt,
			)
			if err := sleepCtx(ctx, time.Duration(s.cfg.LookupRetryDelayMs)*time.Millisecond); err != nil {
				return nil, err
			}
		}

		data, err := s.client.Get(ctx, path)
		if err == nil {
			return decodeQuiz(data)
		}
		if !backend.IsStatus(err, http.StatusNotFound) {
			return nil, err
		}
	}

	// 生成がまだ走っていない。こちらから生成を依頼する。
	logger.Info("Quiz still missing after retries, requesting generation", "roadmap_id", roadmapID)
	data, err := s.client.Post(ctx, "/api/quizzes/generate/"+url.PathEscape(roadmapID), nil)
	if err != nil {
		return nil, err
	}
	quiz, err := decodeQuiz(data)
	if err != nil {
		// 生成APIがクイズ本体を返さない実装もあるので取り直す
		if data, getErr := s.client.Get(ctx, path); getErr == nil {
			return decodeQuiz(data)
		}
		return nil, fmt.Errorf("quizService.fetchQuizWithRetry: %w", err)
	}
	return quiz, nil
}

// restoreProgress は保存済みの設問単位進捗からセッションを復元します。
// 進捗が無い・読めないのはエラーではなく、最初の設問から始めるだけです。
func (s *quizService) restoreProgress(ctx context.Context, session *QuizSession) {
	logger := middleware.GetLogger(ctx)
	path := fmt.Sprintf("/api/quizzes/%s/progress?userId=%s", url.PathEscape(session.Quiz.ID), url.QueryEscape(session.UserID))

	data, err := s.client.Get(ctx, path)
	if err != nil {
		if !backend.IsStatus(err, http.StatusNotFound) {
			logger.Warn("Failed to load quiz progress, starting from the beginning", "error", err, "quiz_id", session.Quiz.ID)
		}
		return
	}

	var entries []model.QuizProgressEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		var wrapped struct {
			Progress []model.QuizProgressEntry `json:"progress"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			logger.Warn("Failed to decode quiz progress, starting from the beginning", "error", err, "quiz_id", session.Quiz.ID)
			return
		}
		entries = wrapped.Progress
	}
	if len(entries) == 0 {
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	maxIndex := -1
	for _, e := range entries {
		if e.QuestionIndex < 0 || e.QuestionIndex >= len(session.answers) {
			continue
		}
		session.answers[e.QuestionIndex] = &model.QuizAnswer{
			SelectedOption: e.SelectedOption,
			TimeSpentMs:    e.TimeSpent,
		}
		if e.QuestionIndex > maxIndex {
			maxIndex = e.QuestionIndex
		}
	}
	if maxIndex < 0 {
		return
	}

	// 最後に答えた次の設問から再開。最終問を超えては進めない。
	cursor := maxIndex + 1
	if last := len(session.answers) - 1; cursor > last {
		cursor = last
	}
	session.cursor = cursor
	logger.Info("Resumed quiz from saved progress", "quiz_id", session.Quiz.ID, "cursor", cursor)
}

func (s *quizService) Answer(ctx context.Context, session *QuizSession, optionIndex int) error {
	session.mu.Lock()
	if session.results != nil {
		session.mu.Unlock()
		return model.ErrInvalidInput
	}
	questionIndex := session.cursor
	question := session.Quiz.QuizData.Questions[questionIndex]
	if optionIndex < 0 || optionIndex >= len(question.Options) {
		session.mu.Unlock()
		return model.ErrInvalidInput
	}

	answer := &model.QuizAnswer{
		SelectedOption: optionIndex,
		TimeSpentMs:    time.Since(session.shownAt).Milliseconds(),
	}
	session.answers[questionIndex] = answer
	isLast := questionIndex == len(session.answers)-1
	session.mu.Unlock()

	logger := middleware.GetLogger(ctx)
	bgCtx := middleware.WithLogger(context.WithoutCancel(ctx), logger)

	// 保存はUIを止めない。失敗時はレート制限のときだけ取り直す。
	session.wg.Add(1)
	go func() {
		defer session.wg.Done()
		s.persistAnswer(bgCtx, session, questionIndex, answer)
	}()

	// 最終問以外は少し間を置いて次の設問へ
	if !isLast {
		session.wg.Add(1)
		go func() {
			defer session.wg.Done()
			s.autoAdvance(bgCtx, session, questionIndex)
		}()
	}
	return nil
}

// persistAnswer は回答をバックエンドへ保存します。レート制限 (429) の場合だけ
// 指数バックオフで取り直し、リトライを使い切ったら黙って諦めます。
func (s *quizService) persistAnswer(ctx context.Context, session *QuizSession, questionIndex int, answer *model.QuizAnswer) {
	logger := middleware.GetLogger(ctx)
	path := fmt.Sprintf("/api/quizzes/%s/progress", url.PathEscape(session.Quiz.ID))
	req := &model.SaveQuizProgressRequest{
		UserID:         session.UserID,
		QuestionIndex:  questionIndex,
		SelectedOption: answer.SelectedOption,
		TimeSpent:      answer.TimeSpentMs,
	}

	for retry := 0; ; retry++ {
		_, err := s.client.Post(ctx, path, req)
		if err == nil {
			return
		}
		if !isRateLimited(err) || retry >= s.cfg.SaveRetries {
			logger.Warn("Failed to save quiz answer, giving up",
				"error", err,
				"quiz_id", session.Quiz.ID,
				"question_index", questionIndex,
			)
			return
		}
		backoff := time.Duration(s.cfg.SaveBackoffBaseMs) * time.Millisecond << retry
		logger.Info("Rate limited while saving quiz answer, backing off",
			"quiz_id", session.Quiz.ID,
			"question_index", questionIndex,
			"backoff", backoff,
		)
		if sleepCtx(ctx, backoff) != nil {
			return
		}
	}
}

func (s *quizService) autoAdvance(ctx context.Context, session *QuizSession, fromIndex int) {
	if sleepCtx(ctx, time.Duration(s.cfg.AutoAdvanceDelayMs)*time.Millisecond) != nil {
		return
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	// 提出済み、または別経路で既に進んでいたら何もしない
	if session.results != nil || session.cursor != fromIndex {
		return
	}
	session.cursor = fromIndex + 1
	session.shownAt = time.Now()
}

func (s *quizService) Submit(ctx context.Context, session *QuizSession) (*model.QuizAttempt, error) {
	session.mu.Lock()
	if !session.allAnsweredLocked() {
		session.mu.Unlock()
		return nil, model.NewAppError("QUIZ_INCOMPLETE", "All questions must be answered before submitting", "", model.ErrInvalidInput)
	}
	answers := make([]model.QuizAnswer, len(session.answers))
	for i, a := range session.answers {
		answers[i] = *a
	}
	elapsed := int64(time.Since(session.startedAt).Seconds())
	session.mu.Unlock()

	data, err := s.client.Post(ctx, fmt.Sprintf("/api/quizzes/%s/attempt", url.PathEscape(session.Quiz.ID)), &model.SubmitQuizAttemptRequest{
		UserID:        session.UserID,
		Answers:       answers,
		TimeInSeconds: elapsed,
	})
	if err != nil {
		return nil, err
	}

	attempt, err := model.NormalizeQuizAttempt(data)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	session.results = attempt
	session.mu.Unlock()
	return attempt, nil
}

func (s *quizService) Reset(session *QuizSession) {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.answers = make([]*model.QuizAnswer, len(session.Quiz.QuizData.Questions))
	session.cursor = 0
	session.results = nil
	session.startedAt = time.Now()
	session.shownAt = time.Now()
}

func (s *quizService) EnsureGenerated(ctx context.Context, roadmapID string) error {
	if roadmapID == "" {
		return model.ErrInvalidInput
	}
	_, err := s.client.Post(ctx, "/api/quizzes/generate/"+url.PathEscape(roadmapID), nil)
	return err
}

func (s *quizService) Regenerate(ctx context.Context, userID, roadmapID string) (*model.Quiz, error) {
	if roadmapID == "" {
		return nil, model.ErrInvalidInput
	}
	data, err := s.client.Post(ctx, "/api/quizzes/regenerate/"+url.PathEscape(roadmapID), map[string]string{"userId": userID})
	if err != nil {
		return nil, err
	}
	return decodeQuiz(data)
}

func (s *quizService) Statistics(ctx context.Context, userID string) (*model.QuizStatistics, error) {
	if userID == "" {
		return nil, model.ErrNotAuthenticated
	}
	data, err := s.client.Get(ctx, "/api/quizzes/statistics/"+url.PathEscape(userID))
	if err != nil {
		return nil, err
	}
	var stats model.QuizStatistics
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("quizService.Statistics: %w", err)
	}
	return &stats, nil
}

func (s *quizService) Attempts(ctx context.Context, quizID string) ([]model.QuizAttempt, error) {
	if quizID == "" {
		return nil, model.ErrInvalidInput
	}
	data, err := s.client.Get(ctx, fmt.Sprintf("/api/quizzes/%s/attempts", url.PathEscape(quizID)))
	if err != nil {
		return nil, err
	}

	var attempts []model.QuizAttempt
	if err := json.Unmarshal(data, &attempts); err == nil {
		return attempts, nil
	}
	var wrapped struct {
		Attempts []model.QuizAttempt `json:"attempts"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("quizService.Attempts: %w", err)
	}
	return wrapped.Attempts, nil
}

// decodeQuiz は {"quiz": {...}} 形式とクイズ直下形式の両方を受け付けます。
func decodeQuiz(data json.RawMessage) (*model.Quiz, error) {
	var wrapped struct {
		Quiz *model.Quiz `json:"quiz"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Quiz != nil && len(wrapped.Quiz.QuizData.Questions) > 0 {
		normalizeQuiz(wrapped.Quiz)
		return wrapped.Quiz, nil
	}

	var quiz model.Quiz
	if err := json.Unmarshal(data, &quiz); err == nil && len(quiz.QuizData.Questions) > 0 {
		normalizeQuiz(&quiz)
		return &quiz, nil
	}
	return nil, model.NewAppError("QUIZ_MALFORMED", "Quiz not found in response", "", model.ErrInternalServer)
}

func normalizeQuiz(quiz *model.Quiz) {
	if quiz.TotalQuestions == 0 {
		quiz.TotalQuestions = len(quiz.QuizData.Questions)
	}
}

// isRateLimited はレート制限起因のエラーかを判定します。
// ステータスが 429 の場合のほか、メッセージでの通知にも対応します。
func isRateLimited(err error) bool {
	if backend.IsStatus(err, http.StatusTooManyRequests) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RATE_LIMIT_EXCEEDED")
}

// sleepCtx はコンテキストのキャンセルを尊重して待ちます。
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
