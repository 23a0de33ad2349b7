package handler

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/lendman/internal/model"
)

// UserStoreInterface はユーザーハンドラーが必要とするストアインターフェース。
type UserStoreInterface interface {
	// AddUser は利用者を登録する。同名なら会員番号を上書きする。
	AddUser(name, number string)
	// DeleteUser は貸出記録のない利用者を削除する。
	DeleteUser(name string) error
	// ListUsers は全利用者を返す。
	ListUsers() []model.User
	// UserLoanHistory は指定期間に完全に収まる返却済み貸出を返す。
	UserLoanHistory(name string, from, to time.Time) []model.LoanRecord
}

// UserHandler は利用者管理のHTTPハンドラー。
type UserHandler struct {
	store UserStoreInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(store UserStoreInterface) *UserHandler {
	return &UserHandler{
		store: store,
	}
}

// addUserRequest は利用者登録リクエストのボディ。
type addUserRequest struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// userResponse は利用者情報のAPIレスポンス。
type userResponse struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// loanRecordResponse は返却済み貸出のAPIレスポンス。
type loanRecordResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// AddUser は利用者を登録する。
// POST /api/users
func (h *UserHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	var req addUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeInvalidRequest(w)
		return
	}
	if req.Name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "利用者名が空です。",
			Category: "validation",
			Action:   "nameを指定してください。",
		})
		return
	}

	h.store.AddUser(req.Name, req.Number)

	writeJSON(w, http.StatusCreated, userResponse{Name: req.Name, Number: req.Number})
}

// ListUsers は全利用者を返す。
// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users := h.store.ListUsers()

	items := make([]userResponse, len(users))
	for i, u := range users {
		items[i] = userResponse{Name: u.Name, Number: u.Number}
	}
	writeJSON(w, http.StatusOK, items)
}

// DeleteUser は貸出記録のない利用者を削除する。
// DELETE /api/users/{name}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")

	if err := h.store.DeleteUser(name); err != nil {
		handleStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LoanHistory は指定期間に完全に収まる返却済み貸出を返す。
// 期間はstart_year/start_month/start_dayとend_year/end_month/end_dayの
// クエリパラメータで指定する（両端を含む）。
// GET /api/users/{name}/loans
func (h *UserHandler) LoanHistory(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")

	from, err := dateFromQuery(r, "start_year", "start_month", "start_day")
	if err != nil {
		handleStoreError(w, err)
		return
	}
	to, err := dateFromQuery(r, "end_year", "end_month", "end_day")
	if err != nil {
		handleStoreError(w, err)
		return
	}

	records := h.store.UserLoanHistory(name, from, to)

	items := make([]loanRecordResponse, len(records))
	for i, rec := range records {
		items[i] = loanRecordResponse{
			ID:    rec.ID,
			Title: rec.Title,
			Start: formatDate(rec.Start),
			End:   formatDate(rec.End),
		}
	}
	writeJSON(w, http.StatusOK, items)
}

// pathParam はURLパスパラメータをデコードして返す。
// タイトルや利用者名は空白などを含むため、パスエスケープを解除する。
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}
