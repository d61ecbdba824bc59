// internal/model/quiz.go
package model

import "encoding/json"

// QuizQuestion は4択設問1問です。
type QuizQuestion struct {
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer int        `json:"correctAnswer"`
	Difficulty    PointLevel `json:"difficulty"`
	Explanation   string     `json:"explanation,omitempty"`
}

// QuizData はクイズ本体（メタデータ＋設問）です。
type QuizData struct {
	Metadata  map[string]any `json:"metadata,omitempty"`
	Questions []QuizQuestion `json:"questions"`
}

// Quiz はロードマップ1件につき1つ作られるクイズです。
type Quiz struct {
	ID              string     `json:"id"`
	UserRoadmapID   string     `json:"user_roadmap_id"`
	QuizData        QuizData   `json:"quiz_data"`
	TotalQuestions  int        `json:"total_questions"`
	DifficultyLevel PointLevel `json:"difficulty_level,omitempty"`
}

// QuizAnswer はセッション内の回答1件です。
type QuizAnswer struct {
	SelectedOption int   `json:"selectedOption"`
	TimeSpentMs    int64 `json:"timeSpent"`
}

// QuizProgressEntry はバックエンドに保存される設問単位の進捗行です。
// question_index をキーとした冪等アップサート。
type QuizProgressEntry struct {
	QuestionIndex  int   `json:"question_index"`
	SelectedOption int   `json:"selected_option"`
	TimeSpent      int64 `json:"time_spent"`
}

// 進捗保存リクエストDTO
type SaveQuizProgressRequest struct {
	UserID         string `json:"userId"`
	QuestionIndex  int    `json:"questionIndex"`
	SelectedOption int    `json:"selectedOption"`
	TimeSpent      int64  `json:"timeSpent"`
}

// 提出リクエストDTO
type SubmitQuizAttemptRequest struct {
	UserID        string       `json:"userId"`
	Answers       []QuizAnswer `json:"answers"`
	TimeInSeconds int64        `json:"timeInSeconds"`
}

// QuizResults はバックエンドが採点した結果サマリです。
type QuizResults struct {
	Score          int   `json:"score"`
	TotalQuestions int   `json:"totalQuestions"`
	Percentage     int   `json:"percentage"`
	TimeInSeconds  int64 `json:"timeInSeconds"`
}

// QuizAnswerReview は設問ごとの正誤レビューです。
type QuizAnswerReview struct {
	SelectedOption int  `json:"selectedOption"`
	IsCorrect      bool `json:"isCorrect"`
}

// QuizAttempt は1回の提出結果（正規化後の唯一の形）です。
type QuizAttempt struct {
	Results     QuizResults        `json:"results"`
	UserAnswers []QuizAnswerReview `json:"userAnswers"`
}

// NormalizeQuizAttempt はレスポンス形状の揺れを吸収します。
// バックエンドは results を data.results に入れることも results 直下に
// 入れることもあるため、両方を順に探り、どちらにも無ければ ErrNotFound を
// ラップしたエラーを返す（描画エラーであってクラッシュではない）。
func NormalizeQuizAttempt(raw json.RawMessage) (*QuizAttempt, error) {
	if attempt, ok := decodeQuizAttempt(raw); ok {
		return attempt, nil
	}

	// data の下にもう一段ネストしているパターン
	var nested struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested.Data) > 0 {
		if attempt, ok := decodeQuizAttempt(nested.Data); ok {
			return attempt, nil
		}
	}

	return nil, NewAppError("QUIZ_RESULTS_MISSING", "Quiz results not found in response", "", ErrNotFound)
}

func decodeQuizAttempt(raw json.RawMessage) (*QuizAttempt, bool) {
	var direct struct {
		Results     *QuizResults       `json:"results"`
		UserAnswers []QuizAnswerReview `json:"userAnswers"`
	}
	if err := json.Unmarshal(raw, &direct); err != nil || direct.Results == nil {
		return nil, false
	}
	return &QuizAttempt{Results: *direct.Results, UserAnswers: direct.UserAnswers}, true
}

// QuizStatistics はユーザー単位の集計です。
type QuizStatistics struct {
	TotalAttempts   int     `json:"totalAttempts"`
	AverageScore    float64 `json:"averageScore"`
	BestScore       int     `json:"bestScore"`
	TotalTimeSpent  int64   `json:"totalTimeSpent"`
	QuizzesComplete int     `json:"quizzesComplete"`
}
