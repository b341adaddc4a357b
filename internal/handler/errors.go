package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/disneydex/internal/middleware"
	"github.com/hitoshi/disneydex/internal/model"
)

// handleServiceError はDisney APIクライアントから返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeCharacterNotFound:
		return http.StatusNotFound
	case model.ErrCodeFetchFailed, model.ErrCodeSSRFBlocked:
		return http.StatusBadGateway
	case model.ErrCodeInvalidPage, model.ErrCodeInvalidURL:
		return http.StatusBadRequest
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
