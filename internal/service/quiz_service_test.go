// internal/service/quiz_service_test.go
package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"skillspark/internal/config"
	"skillspark/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// テストでは待ち時間を1msまで縮める
func quizTestConfig() config.QuizConfig {
	return config.QuizConfig{
		LookupRetries:      3,
		LookupRetryDelayMs: 1,
		SaveRetries:        2,
		SaveBackoffBaseMs:  1,
		AutoAdvanceDelayMs: 1,
	}
}

const quizJSON = `{
	"id": "q1",
	"user_roadmap_id": "rm1",
	"quiz_data": {"questions": [
		{"question": "Q1", "options": ["a", "b", "c", "d"], "correctAnswer": 0, "difficulty": "beginner"},
		{"question": "Q2", "options": ["a", "b", "c", "d"], "correctAnswer": 1, "difficulty": "intermediate"},
		{"question": "Q3", "options": ["a", "b", "c", "d"], "correctAnswer": 2, "difficulty": "advanced"}
	]},
	"total_questions": 3
}`

func Test_quizService_StartSession(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: クイズ取得と初期状態", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/quizzes/rm1":
				assert.Equal(t, "u1", r.URL.Query().Get("userId"))
				w.Write([]byte(`{"success":true,"data":` + quizJSON + `}`))
			case "/api/quizzes/q1/progress":
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"success":false,"error":{"message":"no progress"}}`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		svc := NewQuizService(newTestClient(t, srv), quizTestConfig())
		session, err := svc.StartSession(ctx, "u1", "rm1")
		require.NoError(t, err)
		assert.Equal(t, "q1", session.Quiz.ID)
		assert.Equal(t, 3, session.Quiz.TotalQuestions)
		assert.Equal(t, 0, session.Cursor())
		assert.False(t, session.AllAnswered())
	})

	t.Run("正常系: 404はリトライして生成完了を待つ", func(t *testing.T) {
		var lookups atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/quizzes/rm1":
				if lookups.Add(1) < 3 {
					w.WriteHeader(http.StatusNotFound)
					w.Write([]byte(`{"success":false,"error":{"message":"Quiz not found"}}`))
					return
				}
				w.Write([]byte(`{"success":true,"data":` + quizJSON + `}`))
			case "/api/quizzes/q1/progress":
				w.Write([]byte(`{"success":true,"data":[]}`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		svc := NewQuizService(newTestClient(t, srv), quizTestConfig())
		session, err := svc.StartSession(ctx, "u1", "rm1")
		require.NoError(t, err)
		assert.Equal(t, "q1", session.Quiz.ID)
		assert.Equal(t, int32(3), lookups.Load())
	})

	t.Run("正常系: リトライを使い切ったら生成をリクエスト", func(t *testing.T) {
		var generateCalled atomic.Bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/quizzes/rm1":
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"success":false,"error":{"message":"Quiz not found"}}`))
			case "/api/quizzes/generate/rm1":
				generateCalled.Store(true)
				w.Write([]byte(`{"success":true,"data":{"quiz":` + quizJSON + `}}`))
			case "/api/quizzes/q1/progress":
				w.Write([]byte(`{"success":true,"data":[]}`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		svc := NewQuizService(newTestClient(t, srv), quizTestConfig())
		session, err := svc.StartSession(ctx, "u1", "rm1")
		require.NoError(t, err)
		assert.True(t, generateCalled.Load())
		assert.Equal(t, "q1", session.Quiz.ID)
	})

	t.Run("異常系: 404以外のエラーはリトライせず返す", func(t *testing.T) {
		var lookups atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lookups.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"success":false,"error":{"message":"boom"}}`))
		}))
		defer srv.Close()

		svc := NewQuizService(newTestClient(t, srv), quizTestConfig())
		_, err := svc.StartSession(ctx, "u1", "rm1")
		require.Error(t, err)
		assert.Equal(t, int32(1), lookups.Load())
	})

	t.Run("異常系: 未ログイン", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		svc := NewQuizService(newTestClient(t, srv), quizTestConfig())
		_, err := svc.StartSession(ctx, "", "rm1")
		assert.ErrorIs(t, err, model.ErrNotAuthenticated)
	})
}

func Test_quizService_ResumeProgress(t *testing.T) {
	ctx := context.Background()

	newServer := func(progress string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/quizzes/rm1":
				w.Write([]byte(`{"success":true,"data":` + quizJSON + `}`))
			case "/api/quizzes/q1/progress":
				w.Write([]byte(`{"success":true,"data":` + progress + `}`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
	}

	t.Run("正常系: 最後に答えた次の設問から再開", func(t *testing.T) {
		srv := newServer(`[
			{"question_index": 0, "selected_option": 1, "time_spent": 4000},
			{"question_index": 1, "selected_option": 2, "time_spent": 3000}
		]`)
		defer srv.Close()

		svc := NewQuizService(newTestClient(t, srv), quizTestConfig())
		session, err := svc.StartSession(ctx, "u1", "rm1")
		require.NoError(t, err)
		assert.Equal(t, 2, session.Cursor())

		answers := session.Answers()
		require.NotNil(t, answers[0])
		assert.Equal(t, 1, answers[0].SelectedOption)
		assert.Equal(t, int64(4000), answers[0].TimeSpentMs)
		assert.Nil(t, answers[2])
	})

	t.Run("正常系: 全問回答済みでも最終問を超えない", func(t *testing.T) {
		srv := newServer(`[
			{"question_index": 0, "selected_option": 0, "time_spent": 1},
			{"question_index": 1, "selected_option": 0, "time_spent": 1},
			{"question_index": 2, "selected_option": 0, "time_spent": 1}
		]`)
		defer srv.Close()

		svc := NewQuizService(newTestClient(t, srv), quizTestConfig())
		session, err := svc.StartSession(ctx, "u1", "rm1")
		require.NoError(t, err)
		assert.Equal(t, 2, session.Cursor())
		assert.True(t, session.AllAnswered())
	})

	t.Run("正常系: 範囲外のインデックスは無視される", func(t *testing.T) {
		srv := newServer(`[{"question_index": 99, "selected_option": 0, "time_spent": 1}]`)
		defer srv.Close()

		svc := NewQuizService(newTestClient(t, srv), quizTestConfig())
		session, err := svc.StartSession(ctx, "u1", "rm1")
		require.NoError(t, err)
		assert.Equal(t, 0, session.Cursor())
	})
}

func Test_quizService_Answer(t *testing.T) {
	ctx := context.Background()

	newSessionWith := func(t *testing.T, progressHandler http.HandlerFunc) (QuizService, *QuizSession, *atomic.Int32) {
		var saves atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.URL.Path == "/api/quizzes/rm1":
				w.Write([]byte(`{"success":true,"data":` + quizJSON + `}`))
			case r.URL.Path == "/api/quizzes/q1/progress" && r.Method == http.MethodGet:
				w.Write([]byte(`{"success":true,"data":[]}`))
			case r.URL.Path == "/api/quizzes/q1/progress" && r.Method == http.MethodPost:
				saves.Add(1)
				progressHandler(w, r)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		t.Cleanup(srv.Close)

		svc := NewQuizService(newTestClient(t, srv), quizTestConfig())
		session, err := svc.StartSession(ctx, "u1", "rm1")
		require.NoError(t, err)
		return svc, session, &saves
	}

	t.Run("正常系: 回答が保存され自動で次へ進む", func(t *testing.T) {
		svc, session, saves := newSessionWith(t, func(w http.ResponseWriter, r *http.Request) {
			var req model.SaveQuizProgressRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "u1", req.UserID)
			assert.Equal(t, 0, req.QuestionIndex)
			assert.Equal(t, 2, req.SelectedOption)
			w.Write([]byte(`{"success":true,"data":{}}`))
		})

		require.NoError(t, svc.Answer(ctx, session, 2))
		session.Wait()
		assert.Equal(t, int32(1), saves.Load())
		assert.Equal(t, 1, session.Cursor())
	})

	t.Run("正常系: レート制限はバックオフして保存し直す", func(t *testing.T) {
		var attempts atomic.Int32
		svc, session, saves := newSessionWith(t, func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) <= 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"success":false,"error":{"message":"RATE_LIMIT_EXCEEDED"}}`))
				return
			}
			w.Write([]byte(`{"success":true,"data":{}}`))
		})

		require.NoError(t, svc.Answer(ctx, session, 0))
		session.Wait()
		// 2回の429の後に成功
		assert.Equal(t, int32(3), saves.Load())
	})

	t.Run("正常系: リトライを使い切っても回答は手元に残る", func(t *testing.T) {
		svc, session, saves := newSessionWith(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"success":false,"error":{"message":"RATE_LIMIT_EXCEEDED"}}`))
		})

		require.NoError(t, svc.Answer(ctx, session, 1))
		session.Wait()
		// 初回 + リトライ2回で諦める
		assert.Equal(t, int32(3), saves.Load())
		require.NotNil(t, session.Answers()[0])
		assert.Equal(t, 1, session.Answers()[0].SelectedOption)
	})

	t.Run("正常系: レート制限以外の失敗はリトライしない", func(t *testing.T) {
		svc, session, saves := newSessionWith(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		require.NoError(t, svc.Answer(ctx, session, 1))
		session.Wait()
		assert.Equal(t, int32(1), saves.Load())
	})

	t.Run("正常系: 最終問では自動遷移しない", func(t *testing.T) {
		svc, session, _ := newSessionWith(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":true,"data":{}}`))
		})

		require.NoError(t, svc.Answer(ctx, session, 0))
		session.Wait()
		require.NoError(t, svc.Answer(ctx, session, 1))
		session.Wait()
		assert.Equal(t, 2, session.Cursor())

		require.NoError(t, svc.Answer(ctx, session, 2))
		session.Wait()
		assert.Equal(t, 2, session.Cursor(), "the last question stays in view")
		assert.True(t, session.AllAnswered())
	})

	t.Run("異常系: 選択肢が範囲外", func(t *testing.T) {
		svc, session, _ := newSessionWith(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":true,"data":{}}`))
		})
		assert.ErrorIs(t, svc.Answer(ctx, session, 9), model.ErrInvalidInput)
	})
}

func Test_quizService_SubmitAndReset(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/quizzes/rm1":
			w.Write([]byte(`{"success":true,"data":` + quizJSON + `}`))
		case r.URL.Path == "/api/quizzes/q1/progress":
			w.Write([]byte(`{"success":true,"data":[]}`))
		case r.URL.Path == "/api/quizzes/q1/attempt":
			var req model.SubmitQuizAttemptRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Len(t, req.Answers, 3)
			// results が data の下にネストする形で返す
			w.Write([]byte(`{"success":true,"data":{"data":{"results":{"score":2,"totalQuestions":3,"percentage":67,"timeInSeconds":42},"userAnswers":[{"selectedOption":0,"isCorrect":true},{"selectedOption":1,"isCorrect":true},{"selectedOption":0,"isCorrect":false}]}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	svc := NewQuizService(newTestClient(t, srv), quizTestConfig())
	session, err := svc.StartSession(ctx, "u1", "rm1")
	require.NoError(t, err)

	t.Run("異常系: 未回答があると提出できない", func(t *testing.T) {
		_, err := svc.Submit(ctx, session)
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("正常系: 全問回答後の提出と結果の正規化", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			require.NoError(t, svc.Answer(ctx, session, 0))
			session.Wait()
		}

		attempt, err := svc.Submit(ctx, session)
		require.NoError(t, err)
		assert.Equal(t, 2, attempt.Results.Score)
		assert.Equal(t, 67, attempt.Results.Percentage)
		assert.Len(t, attempt.UserAnswers, 3)
		assert.Same(t, attempt, session.Results())
	})

	t.Run("正常系: 提出後は回答できない", func(t *testing.T) {
		assert.ErrorIs(t, svc.Answer(ctx, session, 0), model.ErrInvalidInput)
	})

	t.Run("正常系: リセットで同じクイズを最初から", func(t *testing.T) {
		svc.Reset(session)
		assert.Equal(t, 0, session.Cursor())
		assert.Nil(t, session.Results())
		assert.False(t, session.AllAnswered())
	})
}

func Test_quizService_StatisticsAndAttempts(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/quizzes/statistics/u1":
			w.Write([]byte(`{"success":true,"data":{"totalAttempts":5,"averageScore":7.2,"bestScore":9,"totalTimeSpent":300,"quizzesComplete":2}}`))
		case "/api/quizzes/q1/attempts":
			w.Write([]byte(`{"success":true,"data":{"attempts":[{"results":{"score":2,"totalQuestions":3,"percentage":67,"timeInSeconds":42}}]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	svc := NewQuizService(newTestClient(t, srv), quizTestConfig())

	t.Run("正常系: 統計の取得", func(t *testing.T) {
		stats, err := svc.Statistics(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 5, stats.TotalAttempts)
		assert.InDelta(t, 7.2, stats.AverageScore, 0.001)
	})

	t.Run("正常系: 提出履歴はラッパー形式も受け付ける", func(t *testing.T) {
		attempts, err := svc.Attempts(ctx, "q1")
		require.NoError(t, err)
		require.Len(t, attempts, 1)
		assert.Equal(t, 2, attempts[0].Results.Score)
	})
}
