package handler

import (
	"net/http"

	"github.com/hitoshi/lendman/internal/model"
)

// CatalogStoreInterface はカタログハンドラーが必要とするストアインターフェース。
type CatalogStoreInterface interface {
	// AddAuthor は著者を登録する。同名ならジャンルを上書きする。
	AddAuthor(name, genre string)
	// ListAuthors は全著者を返す。
	ListAuthors() []model.Author
	// AddBookCopy は蔵書を1冊追加する。
	AddBookCopy(authorName, title string)
	// ListAvailableBooks は貸出可能なタイトルを返す。
	ListAvailableBooks() []model.Book
	// DeleteBook は貸出可能な蔵書を除去する。貸出中ならソフト削除。
	DeleteBook(title string) error
}

// CatalogHandler は著者・蔵書管理のHTTPハンドラー。
type CatalogHandler struct {
	store CatalogStoreInterface
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(store CatalogStoreInterface) *CatalogHandler {
	return &CatalogHandler{
		store: store,
	}
}

// addAuthorRequest は著者登録リクエストのボディ。
type addAuthorRequest struct {
	Name  string `json:"name"`
	Genre string `json:"genre"`
}

// authorResponse は著者情報のAPIレスポンス。
type authorResponse struct {
	Name  string `json:"name"`
	Genre string `json:"genre"`
}

// addBookCopyRequest は蔵書追加リクエストのボディ。
type addBookCopyRequest struct {
	Author string `json:"author"`
	Title  string `json:"title"`
}

// bookResponse は蔵書情報のAPIレスポンス。
type bookResponse struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Copies int    `json:"copies"`
}

// AddAuthor は著者を登録する。
// POST /api/authors
func (h *CatalogHandler) AddAuthor(w http.ResponseWriter, r *http.Request) {
	var req addAuthorRequest
	if err := decodeBody(r, &req); err != nil {
		writeInvalidRequest(w)
		return
	}
	if req.Name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "著者名が空です。",
			Category: "validation",
			Action:   "nameを指定してください。",
		})
		return
	}

	h.store.AddAuthor(req.Name, req.Genre)

	writeJSON(w, http.StatusCreated, authorResponse{Name: req.Name, Genre: req.Genre})
}

// ListAuthors は全著者を返す。
// GET /api/authors
func (h *CatalogHandler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	authors := h.store.ListAuthors()

	items := make([]authorResponse, len(authors))
	for i, a := range authors {
		items[i] = authorResponse{Name: a.Name, Genre: a.Genre}
	}
	writeJSON(w, http.StatusOK, items)
}

// AddBookCopy は蔵書を1冊追加する。
// 既知のタイトルなら冊数が1増え、著者フィールドは変更されない。
// POST /api/books
func (h *CatalogHandler) AddBookCopy(w http.ResponseWriter, r *http.Request) {
	var req addBookCopyRequest
	if err := decodeBody(r, &req); err != nil {
		writeInvalidRequest(w)
		return
	}
	if req.Title == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "タイトルが空です。",
			Category: "validation",
			Action:   "titleを指定してください。",
		})
		return
	}

	h.store.AddBookCopy(req.Author, req.Title)

	w.WriteHeader(http.StatusCreated)
}

// ListAvailableBooks は貸出可能冊数が1冊以上のタイトルを返す。
// GET /api/books
func (h *CatalogHandler) ListAvailableBooks(w http.ResponseWriter, r *http.Request) {
	books := h.store.ListAvailableBooks()

	items := make([]bookResponse, len(books))
	for i, b := range books {
		items[i] = bookResponse{Title: b.Title, Author: b.Author, Copies: b.Copies}
	}
	writeJSON(w, http.StatusOK, items)
}

// DeleteBook は貸出可能な蔵書を除去する。
// 貸出中の冊がある場合はソフト削除（冊数0）に留まる。
// DELETE /api/books/{title}
func (h *CatalogHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	title := pathParam(r, "title")

	if err := h.store.DeleteBook(title); err != nil {
		handleStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
