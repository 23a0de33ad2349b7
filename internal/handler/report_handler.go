package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/lendman/internal/model"
	"github.com/hitoshi/lendman/internal/render"
)

// ReportStoreInterface はレポートハンドラーが必要とするストアインターフェース。
type ReportStoreInterface interface {
	ListUsers() []model.User
	ListAuthors() []model.Author
	ListAvailableBooks() []model.Book
	ListBooksOnLoan() []model.ActiveLoan
	UserLoanHistory(name string, from, to time.Time) []model.LoanRecord
}

// ReportHandler は一覧クエリの結果をコンソール表示用の罫線付きテキスト
// テーブルとして返すHTTPハンドラー。
type ReportHandler struct {
	store ReportStoreInterface
}

// NewReportHandler はReportHandlerを生成する。
func NewReportHandler(store ReportStoreInterface) *ReportHandler {
	return &ReportHandler{
		store: store,
	}
}

// Users は全利用者のテーブルを返す。
// GET /api/reports/users
func (h *ReportHandler) Users(w http.ResponseWriter, r *http.Request) {
	users := h.store.ListUsers()

	rows := make([][]string, len(users))
	for i, u := range users {
		rows[i] = []string{u.Name, u.Number}
	}
	writeTable(w, []string{"USERNAME", "NUMBER"}, rows)
}

// Authors は全著者のテーブルを返す。
// GET /api/reports/authors
func (h *ReportHandler) Authors(w http.ResponseWriter, r *http.Request) {
	authors := h.store.ListAuthors()

	rows := make([][]string, len(authors))
	for i, a := range authors {
		rows[i] = []string{a.Name, a.Genre}
	}
	writeTable(w, []string{"NAME", "GENRE"}, rows)
}

// AvailableBooks は貸出可能なタイトルのテーブルを返す。
// GET /api/reports/books
func (h *ReportHandler) AvailableBooks(w http.ResponseWriter, r *http.Request) {
	books := h.store.ListAvailableBooks()

	rows := make([][]string, len(books))
	for i, b := range books {
		rows[i] = []string{b.Title, b.Author, strconv.Itoa(b.Copies)}
	}
	writeTable(w, []string{"TITLE", "AUTHOR", "COPIES"}, rows)
}

// BooksOnLoan は貸出中の全冊のテーブルを返す。貸出1件につき1行。
// GET /api/reports/loans
func (h *ReportHandler) BooksOnLoan(w http.ResponseWriter, r *http.Request) {
	loans := h.store.ListBooksOnLoan()

	rows := make([][]string, len(loans))
	for i, l := range loans {
		rows[i] = []string{l.Title, l.Author}
	}
	writeTable(w, []string{"TITLE", "AUTHOR"}, rows)
}

// UserLoanHistory は指定期間に完全に収まる返却済み貸出タイトルのテーブルを返す。
// GET /api/reports/users/{name}/loans
func (h *ReportHandler) UserLoanHistory(w http.ResponseWriter, r *http.Request) {
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

	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = []string{rec.Title}
	}
	writeTable(w, []string{"TITLE"}, rows)
}

// writeTable はテーブルをtext/plainで書き込む。
func writeTable(w http.ResponseWriter, header []string, rows [][]string) {
	table, err := render.Table(header, rows)
	if err != nil {
		slog.Error("table rendering failed", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
			Code:     "INTERNAL_ERROR",
			Message:  "内部エラーが発生しました。",
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(table))
}
