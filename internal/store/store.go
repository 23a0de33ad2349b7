// Package store は蔵書・利用者・貸出状態を所有するインメモリのストアを提供する。
// 全状態はプロセスのライフタイムに限定され、永続化されない。
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/lendman/internal/model"
)

// MetricsRecorder は貸出ドメインのメトリクス記録インターフェース。
// nilの場合は記録しない。
type MetricsRecorder interface {
	RecordLoan()
	RecordReturn()
	RecordLoanRejected(reason string)
}

// Store は図書館の全状態を保持するインメモリストア。
//
// すべての変更操作は排他ロック下でプリコンディション検査から状態変更までを
// 一括実行する。参照系クエリは共有ロックで並行実行できるが、変更とは並行しない。
// 途中状態（在庫は減ったが貸出エントリが未挿入など）が観測されることはない。
type Store struct {
	mu      sync.RWMutex
	users   map[string]model.User
	authors map[string]model.Author
	books   map[string]model.Book
	loans   map[model.LoanKey]time.Time
	history []model.LoanRecord

	metrics MetricsRecorder
}

// New は空のStoreを生成する。
// metricsはnilを許容する（記録なし）。
func New(metrics MetricsRecorder) *Store {
	return &Store{
		users:   make(map[string]model.User),
		authors: make(map[string]model.Author),
		books:   make(map[string]model.Book),
		loans:   make(map[model.LoanKey]time.Time),
		metrics: metrics,
	}
}

// AddUser は利用者を登録する。
// 同名の利用者が既に存在する場合は会員番号を上書きする。失敗しない。
func (s *Store) AddUser(name, number string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[name] = model.User{Name: name, Number: number}
}

// AddAuthor は著者を登録する。
// 同名の著者が既に存在する場合はジャンルを上書きする。失敗しない。
func (s *Store) AddAuthor(name, genre string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authors[name] = model.Author{Name: name, Genre: genre}
}

// AddBookCopy は蔵書を1冊追加する。
// タイトルが既知なら貸出可能冊数を1増やす。このとき著者フィールドは
// 変更しない（異なる著者名が渡されても最初に記録された著者を保持する）。
// 未知のタイトルなら冊数1・指定著者で新規登録する。失敗しない。
func (s *Store) AddBookCopy(authorName, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if book, ok := s.books[title]; ok {
		book.Copies++
		s.books[title] = book
		return
	}
	s.books[title] = model.Book{Title: title, Author: authorName, Copies: 1}
}

// LoanBook は利用者にタイトルを1冊貸し出す。
//
// タイトルが未登録または貸出可能冊数が0の場合はBOOK_NOT_AVAILABLEを返す。
// 同じ(利用者, タイトル)の組で既に貸出中の場合はLOAN_ALREADY_ACTIVEを返す
// （開始日の暗黙の上書きは履歴の正確性を壊すため拒否する）。
// 成功時は冊数を1減らし、貸出開始日を記録する。失敗時は状態を変更しない。
func (s *Store) LoanBook(userName, title string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[title]
	if !ok || book.Copies <= 0 {
		s.recordLoanRejected("not_available")
		return model.NewBookNotAvailableError(title)
	}

	key := model.LoanKey{UserName: userName, Title: title}
	if _, active := s.loans[key]; active {
		s.recordLoanRejected("already_active")
		return model.NewLoanAlreadyActiveError(userName, title)
	}

	book.Copies--
	s.books[title] = book
	s.loans[key] = date

	if s.metrics != nil {
		s.metrics.RecordLoan()
	}
	return nil
}

// EndLoan は貸出を終了し、履歴レコードを追加する。
//
// (利用者, タイトル)のアクティブな貸出が存在しない場合はLOAN_NOT_FOUNDを
// 返し、状態を変更しない。成功時は冊数を1増やし、記録済みの開始日と指定の
// 終了日から不変の履歴レコードを追加し、貸出エントリを削除する。
func (s *Store) EndLoan(userName, title string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := model.LoanKey{UserName: userName, Title: title}
	start, ok := s.loans[key]
	if !ok {
		return model.NewLoanNotFoundError(userName, title)
	}

	book := s.books[title]
	book.Copies++
	s.books[title] = book

	s.history = append(s.history, model.LoanRecord{
		ID:       uuid.New().String(),
		UserName: userName,
		Title:    title,
		Start:    start,
		End:      date,
	})
	delete(s.loans, key)

	if s.metrics != nil {
		s.metrics.RecordReturn()
	}
	return nil
}

// DeleteBook はタイトルの貸出可能な蔵書を除去する。
//
// タイトルが未登録の場合はBOOK_NOT_FOUNDを返す。
// アクティブな貸出が1件でも残っている場合は冊数を0にするソフト削除に留める。
// 貸出中の1冊が後から返却できるよう、タイトルのレコード自体は残す必要がある。
// 貸出が残っていなければカタログから完全に削除する。
func (s *Store) DeleteBook(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[title]
	if !ok {
		return model.NewBookNotFoundError(title)
	}

	for key := range s.loans {
		if key.Title == title {
			book.Copies = 0
			s.books[title] = book
			return nil
		}
	}

	delete(s.books, title)
	return nil
}

// DeleteUser は利用者を削除する。
//
// 利用者が未登録の場合はUSER_NOT_FOUNDを返す。
// アクティブな貸出または過去の貸出履歴が1件でも残っている場合は
// USER_HAS_LOANSを返し、削除しない。履歴は利用者名のみで参照しているため、
// 削除すると履歴の参照整合性が壊れる。
func (s *Store) DeleteUser(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[name]; !ok {
		return model.NewUserNotFoundError(name)
	}

	for key := range s.loans {
		if key.UserName == name {
			return model.NewUserHasLoansError(name)
		}
	}
	for _, rec := range s.history {
		if rec.UserName == name {
			return model.NewUserHasLoansError(name)
		}
	}

	delete(s.users, name)
	return nil
}

// ListUsers は全利用者を名前順で返す。
func (s *Store) ListUsers() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users
}

// ListAuthors は全著者を名前順で返す。
func (s *Store) ListAuthors() []model.Author {
	s.mu.RLock()
	defer s.mu.RUnlock()

	authors := make([]model.Author, 0, len(s.authors))
	for _, a := range s.authors {
		authors = append(authors, a)
	}
	sort.Slice(authors, func(i, j int) bool { return authors[i].Name < authors[j].Name })
	return authors
}

// ListAvailableBooks は貸出可能冊数が1冊以上のタイトルをタイトル順で返す。
// ソフト削除済みなどで冊数0のタイトルは含まれない。
func (s *Store) ListAvailableBooks() []model.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	books := make([]model.Book, 0, len(s.books))
	for _, b := range s.books {
		if b.Copies > 0 {
			books = append(books, b)
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books
}

// ListBooksOnLoan は貸出中の全冊をタイトル順（同タイトルは利用者名順）で返す。
// アクティブな貸出1件につき1行。同じタイトルが複数の利用者に貸し出されて
// いれば、その冊数ぶんの行が返る。
func (s *Store) ListBooksOnLoan() []model.ActiveLoan {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loans := make([]model.ActiveLoan, 0, len(s.loans))
	for key, loanedAt := range s.loans {
		loans = append(loans, model.ActiveLoan{
			UserName: key.UserName,
			Title:    key.Title,
			Author:   s.books[key.Title].Author,
			LoanedAt: loanedAt,
		})
	}
	sort.Slice(loans, func(i, j int) bool {
		if loans[i].Title != loans[j].Title {
			return loans[i].Title < loans[j].Title
		}
		return loans[i].UserName < loans[j].UserName
	})
	return loans
}

// UserLoanHistory は指定利用者の返却済み貸出のうち、開始日と終了日の両方が
// [from, to]（両端を含む）に収まるものを返す。アクティブな貸出は開始日に
// かかわらず対象外。該当なしの場合は空スライスを返す。
func (s *Store) UserLoanHistory(name string, from, to time.Time) []model.LoanRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]model.LoanRecord, 0)
	for _, rec := range s.history {
		if rec.UserName != name {
			continue
		}
		if rec.Start.Before(from) || rec.End.After(to) {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Start.Before(records[j].Start) })
	return records
}

func (s *Store) recordLoanRejected(reason string) {
	if s.metrics != nil {
		s.metrics.RecordLoanRejected(reason)
	}
}
