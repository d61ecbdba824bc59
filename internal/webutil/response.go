// internal/webutil/response.go
package webutil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"skillspark/internal/backend"
	"skillspark/internal/model"

	"github.com/go-playground/validator/v10"
)

// HandleError はエラーを解釈し、適切なJSONエラーレスポンスを返します。
// これがアプリケーションのエラーハンドリングの中心となります。
func HandleError(w http.ResponseWriter, logger *slog.Logger, err error) {
	statusCode := MapErrorToStatusCode(err)

	var errResp model.APIErrorResponse
	var appErr *model.AppError
	var statusErr *backend.StatusError

	switch {
	case errors.As(err, &appErr):
		// AppError の場合、その詳細情報をレスポンスとして使用
		errResp = model.APIErrorResponse{Error: appErr.Detail}
	case errors.As(err, &statusErr):
		// リモートバックエンドのエラーはメッセージをそのまま伝える
		errResp = model.APIErrorResponse{
			Error: model.ErrorDetail{
				Code:    "BACKEND_ERROR",
				Message: statusErr.Message,
			},
		}
	case errors.Is(err, model.ErrNotAuthenticated):
		errResp = model.APIErrorResponse{
			Error: model.ErrorDetail{
				Code:    "NOT_AUTHENTICATED",
				Message: "ログインが必要です。",
			},
		}
	case errors.Is(err, model.ErrNotFound):
		errResp = model.APIErrorResponse{
			Error: model.ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "リソースが見つかりません。",
			},
		}
	case errors.Is(err, model.ErrInvalidInput):
		errResp = model.APIErrorResponse{
			Error: model.ErrorDetail{
				Code:    "INVALID_INPUT",
				Message: "入力内容に誤りがあります。",
			},
		}
	default:
		// 予期せぬエラー。ログには詳細を出し、クライアントには汎用メッセージを返す
		logger.Error("Unhandled error", "error", err)
		errResp = model.APIErrorResponse{
			Error: model.ErrorDetail{
				Code:    "INTERNAL_SERVER_ERROR",
				Message: "サーバー内部でエラーが発生しました。",
			},
		}
	}

	RespondWithJSON(w, statusCode, errResp)
}

// MapErrorToStatusCode はアプリケーションエラーをHTTPステータスコードにマッピングします
func MapErrorToStatusCode(err error) int {
	var appErr *model.AppError
	// AppErrorの場合は、ラップされたエラーで判定する
	if errors.As(err, &appErr) && appErr.Unwrap() != nil {
		err = appErr.Unwrap()
	}

	// リモートバックエンドのステータスはそのまま通す
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Status >= 400 {
			return statusErr.Status
		}
		return http.StatusBadGateway
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		// ハンドリングされていないエラーは内部サーバーエラーとして扱う
		return http.StatusInternalServerError
	}
}

// RespondWithJSON はJSONレスポンスを返します
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Error marshaling JSON response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":"INTERNAL_SERVER_ERROR", "message":"レスポンス生成中にエラーが発生しました。"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func NewValidationErrorResponse(errs validator.ValidationErrors) *model.AppError {
	var fields []string
	var messages []string

	for _, err := range errs {
		fields = append(fields, err.Field())
		messages = append(messages, err.Translate(Trans))
	}

	return model.NewAppError(
		"VALIDATION_ERROR",
		strings.Join(messages, " "),
		strings.Join(fields, ","),
		model.ErrInvalidInput,
	)
}
