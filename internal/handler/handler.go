// Package handler はLibraryStoreの全操作をHTTPエンドポイントとして公開する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/lendman/internal/model"
)

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeInvalidRequest はリクエストボディの解析失敗時の400レスポンスを書き込む。
func writeInvalidRequest(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleStoreError はストアから返されたエラーを適切なHTTPステータスコードに変換する。
func handleStoreError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はエラーコードからHTTPステータスコードを決定する。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeBookNotAvailable, model.ErrCodeLoanAlreadyActive, model.ErrCodeUserHasLoans:
		return http.StatusConflict
	case model.ErrCodeBookNotFound, model.ErrCodeLoanNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	}
	if apiErr.Category == "validation" {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// decodeBody はリクエストボディのJSONをデコードする。
func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// dateFromQuery は年・月・日の3つのクエリパラメータから日付を組み立てる。
// パラメータの欠落・非数値・実在しない日付はINVALID_DATEエラーになる。
func dateFromQuery(r *http.Request, yearKey, monthKey, dayKey string) (time.Time, error) {
	year, errY := strconv.Atoi(r.URL.Query().Get(yearKey))
	month, errM := strconv.Atoi(r.URL.Query().Get(monthKey))
	day, errD := strconv.Atoi(r.URL.Query().Get(dayKey))
	if errY != nil || errM != nil || errD != nil {
		return time.Time{}, model.NewInvalidDateError(year, month, day)
	}
	return parseDate(year, month, day)
}

// parseDate は年・月・日の整数から日付を組み立てる。
// 2月30日のような実在しない組み合わせはエラーを返す。
func parseDate(year, month, day int) (time.Time, error) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, model.NewInvalidDateError(year, month, day)
	}
	return t, nil
}

// formatDate は日付をAPIレスポンス用のYYYY-MM-DD形式に整形する。
func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
