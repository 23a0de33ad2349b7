package handler

import (
	"net/http"
	"time"

	"github.com/hitoshi/lendman/internal/model"
)

// LoanStoreInterface は貸出ハンドラーが必要とするストアインターフェース。
type LoanStoreInterface interface {
	// LoanBook は利用者にタイトルを1冊貸し出す。
	LoanBook(userName, title string, date time.Time) error
	// EndLoan は貸出を終了し、履歴レコードを追加する。
	EndLoan(userName, title string, date time.Time) error
	// ListBooksOnLoan は貸出中の全冊を貸出1件につき1行で返す。
	ListBooksOnLoan() []model.ActiveLoan
}

// LoanHandler は貸出・返却のHTTPハンドラー。
type LoanHandler struct {
	store LoanStoreInterface
}

// NewLoanHandler はLoanHandlerを生成する。
func NewLoanHandler(store LoanStoreInterface) *LoanHandler {
	return &LoanHandler{
		store: store,
	}
}

// loanRequest は貸出・返却リクエストのボディ。
// 日付は年・月・日の3つの整数で渡す。
type loanRequest struct {
	UserName string `json:"user_name"`
	Title    string `json:"title"`
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Day      int    `json:"day"`
}

// activeLoanResponse は貸出中の1冊のAPIレスポンス。
type activeLoanResponse struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	UserName string `json:"user_name"`
	LoanedAt string `json:"loaned_at"`
}

// CreateLoan は貸出を行う。
// 在庫なしはBOOK_NOT_AVAILABLE、同一組の二重貸出はLOAN_ALREADY_ACTIVEで409になる。
// POST /api/loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	req, date, ok := h.decodeLoanRequest(w, r)
	if !ok {
		return
	}

	if err := h.store.LoanBook(req.UserName, req.Title, date); err != nil {
		handleStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// EndLoan は返却を行う。アクティブな貸出がなければLOAN_NOT_FOUNDで404になる。
// POST /api/loans/end
func (h *LoanHandler) EndLoan(w http.ResponseWriter, r *http.Request) {
	req, date, ok := h.decodeLoanRequest(w, r)
	if !ok {
		return
	}

	if err := h.store.EndLoan(req.UserName, req.Title, date); err != nil {
		handleStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListBooksOnLoan は貸出中の全冊を返す。
// 同じタイトルが複数の利用者に貸し出されていれば複数行返る。
// GET /api/loans
func (h *LoanHandler) ListBooksOnLoan(w http.ResponseWriter, r *http.Request) {
	loans := h.store.ListBooksOnLoan()

	items := make([]activeLoanResponse, len(loans))
	for i, l := range loans {
		items[i] = activeLoanResponse{
			Title:    l.Title,
			Author:   l.Author,
			UserName: l.UserName,
			LoanedAt: formatDate(l.LoanedAt),
		}
	}
	writeJSON(w, http.StatusOK, items)
}

// decodeLoanRequest は貸出・返却共通のリクエスト検証を行う。
// 検証に失敗した場合はレスポンスを書き込み、ok=falseを返す。
func (h *LoanHandler) decodeLoanRequest(w http.ResponseWriter, r *http.Request) (loanRequest, time.Time, bool) {
	var req loanRequest
	if err := decodeBody(r, &req); err != nil {
		writeInvalidRequest(w)
		return req, time.Time{}, false
	}
	if req.UserName == "" || req.Title == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "利用者名またはタイトルが空です。",
			Category: "validation",
			Action:   "user_nameとtitleを指定してください。",
		})
		return req, time.Time{}, false
	}

	date, err := parseDate(req.Year, req.Month, req.Day)
	if err != nil {
		handleStoreError(w, err)
		return req, time.Time{}, false
	}
	return req, date, true
}
