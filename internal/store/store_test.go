package store

import (
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/lendman/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func availableCopies(t *testing.T, s *Store, title string) int {
	t.Helper()
	for _, b := range s.ListAvailableBooks() {
		if b.Title == title {
			return b.Copies
		}
	}
	return 0
}

func activeLoanCount(s *Store, title string) int {
	n := 0
	for _, l := range s.ListBooksOnLoan() {
		if l.Title == title {
			n++
		}
	}
	return n
}

// --- 登録系 ---

// TestAddUser_OverwritesNumber は同名利用者の再登録が会員番号を上書きすることを検証する。
func TestAddUser_OverwritesNumber(t *testing.T) {
	s := New(nil)
	s.AddUser("alice", "100")
	s.AddUser("alice", "200")

	users := s.ListUsers()
	if len(users) != 1 {
		t.Fatalf("len(users) = %d, want 1", len(users))
	}
	if users[0].Number != "200" {
		t.Errorf("Number = %q, want %q", users[0].Number, "200")
	}
}

// TestAddAuthor_OverwritesGenre は同名著者の再登録がジャンルを上書きすることを検証する。
func TestAddAuthor_OverwritesGenre(t *testing.T) {
	s := New(nil)
	s.AddAuthor("Orwell", "Fiction")
	s.AddAuthor("Orwell", "Dystopia")

	authors := s.ListAuthors()
	if len(authors) != 1 {
		t.Fatalf("len(authors) = %d, want 1", len(authors))
	}
	if authors[0].Genre != "Dystopia" {
		t.Errorf("Genre = %q, want %q", authors[0].Genre, "Dystopia")
	}
}

// TestAddBookCopy_IncrementsCopies は既知タイトルへの追加が冊数を増やすことを検証する。
func TestAddBookCopy_IncrementsCopies(t *testing.T) {
	s := New(nil)
	s.AddBookCopy("Orwell", "1984")
	s.AddBookCopy("Orwell", "1984")

	if got := availableCopies(t, s, "1984"); got != 2 {
		t.Errorf("copies = %d, want 2", got)
	}
}

// TestAddBookCopy_KeepsOriginalAuthor は既知タイトルに別の著者名を渡しても
// 最初に記録された著者が保持されることを検証する。
func TestAddBookCopy_KeepsOriginalAuthor(t *testing.T) {
	s := New(nil)
	s.AddBookCopy("Orwell", "1984")
	s.AddBookCopy("Huxley", "1984")

	books := s.ListAvailableBooks()
	if len(books) != 1 {
		t.Fatalf("len(books) = %d, want 1", len(books))
	}
	if books[0].Author != "Orwell" {
		t.Errorf("Author = %q, want %q", books[0].Author, "Orwell")
	}
	if books[0].Copies != 2 {
		t.Errorf("Copies = %d, want 2", books[0].Copies)
	}
}

// --- 貸出・返却 ---

// TestLoanBook_DecrementsCopies は貸出成功で冊数が1減り、貸出中一覧に現れることを検証する。
func TestLoanBook_DecrementsCopies(t *testing.T) {
	s := New(nil)
	s.AddBookCopy("Orwell", "1984")
	s.AddBookCopy("Orwell", "1984")

	if err := s.LoanBook("alice", "1984", date(2024, 1, 1)); err != nil {
		t.Fatalf("LoanBook returned error: %v", err)
	}

	if got := availableCopies(t, s, "1984"); got != 1 {
		t.Errorf("copies = %d, want 1", got)
	}
	if got := activeLoanCount(s, "1984"); got != 1 {
		t.Errorf("active loans = %d, want 1", got)
	}
}

// TestLoanBook_UnknownTitle は未登録タイトルの貸出がBOOK_NOT_AVAILABLEで失敗することを検証する。
func TestLoanBook_UnknownTitle(t *testing.T) {
	s := New(nil)

	err := s.LoanBook("alice", "unknown", date(2024, 1, 1))
	assertAPIErrorCode(t, err, model.ErrCodeBookNotAvailable)
}

// TestLoanBook_NoCopies は在庫0冊の貸出が失敗し、状態が変化しないことを検証する。
func TestLoanBook_NoCopies(t *testing.T) {
	s := New(nil)
	s.AddBookCopy("Orwell", "1984")
	if err := s.LoanBook("alice", "1984", date(2024, 1, 1)); err != nil {
		t.Fatalf("LoanBook returned error: %v", err)
	}

	err := s.LoanBook("bob", "1984", date(2024, 1, 2))
	assertAPIErrorCode(t, err, model.ErrCodeBookNotAvailable)

	if got := activeLoanCount(s, "1984"); got != 1 {
		t.Errorf("active loans = %d, want 1", got)
	}
}

// TestLoanBook_SamePairRejected は同一(利用者, タイトル)の組での再貸出が
// 拒否され、記録済みの開始日が上書きされないことを検証する。
func TestLoanBook_SamePairRejected(t *testing.T) {
	s := New(nil)
	s.AddBookCopy("Orwell", "1984")
	s.AddBookCopy("Orwell", "1984")

	if err := s.LoanBook("alice", "1984", date(2024, 1, 1)); err != nil {
		t.Fatalf("LoanBook returned error: %v", err)
	}

	err := s.LoanBook("alice", "1984", date(2024, 3, 1))
	assertAPIErrorCode(t, err, model.ErrCodeLoanAlreadyActive)

	// 拒否により冊数は減っていない
	if got := availableCopies(t, s, "1984"); got != 1 {
		t.Errorf("copies = %d, want 1", got)
	}

	// 返却時の履歴には最初の開始日が残る
	if err := s.EndLoan("alice", "1984", date(2024, 4, 1)); err != nil {
		t.Fatalf("EndLoan returned error: %v", err)
	}
	records := s.UserLoanHistory("alice", date(2000, 1, 1), date(2100, 1, 1))
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if !records[0].Start.Equal(date(2024, 1, 1)) {
		t.Errorf("Start = %v, want %v", records[0].Start, date(2024, 1, 1))
	}
}

// TestEndLoan_RestoresCopiesAndAppendsHistory は貸出直後の返却で冊数が元に戻り、
// 履歴レコードがちょうど1件追加され、アクティブな貸出が残らないことを検証する。
func TestEndLoan_RestoresCopiesAndAppendsHistory(t *testing.T) {
	s := New(nil)
	s.AddBookCopy("Orwell", "1984")
	before := availableCopies(t, s, "1984")

	if err := s.LoanBook("alice", "1984", date(2024, 1, 1)); err != nil {
		t.Fatalf("LoanBook returned error: %v", err)
	}
	if err := s.EndLoan("alice", "1984", date(2024, 2, 1)); err != nil {
		t.Fatalf("EndLoan returned error: %v", err)
	}

	if got := availableCopies(t, s, "1984"); got != before {
		t.Errorf("copies = %d, want %d", got, before)
	}
	if got := activeLoanCount(s, "1984"); got != 0 {
		t.Errorf("active loans = %d, want 0", got)
	}

	records := s.UserLoanHistory("alice", date(2000, 1, 1), date(2100, 1, 1))
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.ID == "" {
		t.Error("record ID is empty")
	}
	if rec.Title != "1984" || rec.UserName != "alice" {
		t.Errorf("record = %+v, want alice/1984", rec)
	}
	if !rec.Start.Equal(date(2024, 1, 1)) || !rec.End.Equal(date(2024, 2, 1)) {
		t.Errorf("Start/End = %v/%v, want 2024-01-01/2024-02-01", rec.Start, rec.End)
	}
}

// TestEndLoan_NoActiveLoan はアクティブな貸出がない返却がLOAN_NOT_FOUNDで失敗することを検証する。
func TestEndLoan_NoActiveLoan(t *testing.T) {
	s := New(nil)
	s.AddBookCopy("Orwell", "1984")

	err := s.EndLoan("alice", "1984", date(2024, 2, 1))
	assertAPIErrorCode(t, err, model.ErrCodeLoanNotFound)

	if got := availableCopies(t, s, "1984"); got != 1 {
		t.Errorf("copies = %d, want 1", got)
	}
}

// TestLoanHistory_AllowsRepeatedPairs は同じ(利用者, タイトル)の組が
// 履歴上に複数回現れてよいことを検証する。
func TestLoanHistory_AllowsRepeatedPairs(t *testing.T) {
	s := New(nil)
	s.AddBookCopy("Orwell", "1984")

	for i := 0; i < 3; i++ {
		if err := s.LoanBook("alice", "1984", date(2024, time.Month(i+1), 1)); err != nil {
			t.Fatalf("LoanBook #%d returned error: %v", i, err)
		}
		if err := s.EndLoan("alice", "1984", date(2024, time.Month(i+1), 15)); err != nil {
			t.Fatalf("EndLoan #%d returned error: %v", i, err)
		}
	}

	records := s.UserLoanHistory("alice", date(2000, 1, 1), date(2100, 1, 1))
	if len(records) != 3 {
		t.Errorf("len(records) = %d, want 3", len(records))
	}
}

// --- 削除 ---

// TestDeleteBook_NoActiveLoans は貸出中でないタイトルの削除がカタログから
// 完全に取り除くことを検証する。
func TestDeleteBook_NoActiveLoans(t *testing.T) {
	s := New(nil)
	s.AddBookCopy("Orwell", "1984")

	if err := s.DeleteBook("1984"); err != nil {
		t.Fatalf("DeleteBook returned error: %v", err)
	}

	if len(s.ListAvailableBooks()) != 0 {
		t.Error("expected empty available books after delete")
	}
	// 完全削除後の再削除はBOOK_NOT_FOUND
	assertAPIErrorCode(t, s.DeleteBook("1984"), model.ErrCodeBookNotFound)
}

// TestDeleteBook_WithActiveLoan は貸出中のタイトルの削除がソフト削除に留まり、
// 返却が引き続き成立することを検証する。
func TestDeleteBook_WithActiveLoan(t *testing.T) {
	s := New(nil)
	s.AddBookCopy("Orwell", "1984")
	s.AddBookCopy("Orwell", "1984")
	if err := s.LoanBook("alice", "1984", date(2024, 1, 1)); err != nil {
		t.Fatalf("LoanBook returned error: %v", err)
	}

	if err := s.DeleteBook("1984"); err != nil {
		t.Fatalf("DeleteBook returned error: %v", err)
	}

	// 冊数0のため貸出可能一覧からは消えるが、貸出中一覧には残る
	if got := availableCopies(t, s, "1984"); got != 0 {
		t.Errorf("copies = %d, want 0", got)
	}
	if got := activeLoanCount(s, "1984"); got != 1 {
		t.Errorf("active loans = %d, want 1", got)
	}

	// 新規貸出は不可
	assertAPIErrorCode(t, s.LoanBook("bob", "1984", date(2024, 1, 2)), model.ErrCodeBookNotAvailable)

	// 貸出中の1冊は返却できる
	if err := s.EndLoan("alice", "1984", date(2024, 2, 1)); err != nil {
		t.Fatalf("EndLoan after soft delete returned error: %v", err)
	}
}

// TestDeleteBook_UnknownTitle は未登録タイトルの削除がBOOK_NOT_FOUNDで失敗することを検証する。
func TestDeleteBook_UnknownTitle(t *testing.T) {
	s := New(nil)
	assertAPIErrorCode(t, s.DeleteBook("unknown"), model.ErrCodeBookNotFound)
}

// TestDeleteUser_Succeeds は貸出記録のない利用者の削除が成功し、
// 一覧から消えることを検証する。
func TestDeleteUser_Succeeds(t *testing.T) {
	s := New(nil)
	s.AddUser("alice", "100")

	if err := s.DeleteUser("alice"); err != nil {
		t.Fatalf("DeleteUser returned error: %v", err)
	}
	if len(s.ListUsers()) != 0 {
		t.Error("expected empty user list after delete")
	}
}

// TestDeleteUser_WithActiveLoan はアクティブな貸出を持つ利用者の削除が
// USER_HAS_LOANSで失敗し、利用者が残ることを検証する。
func TestDeleteUser_WithActiveLoan(t *testing.T) {
	s := New(nil)
	s.AddUser("alice", "100")
	s.AddBookCopy("Orwell", "1984")
	if err := s.LoanBook("alice", "1984", date(2024, 1, 1)); err != nil {
		t.Fatalf("LoanBook returned error: %v", err)
	}

	assertAPIErrorCode(t, s.DeleteUser("alice"), model.ErrCodeUserHasLoans)
	if len(s.ListUsers()) != 1 {
		t.Error("expected user to remain after failed delete")
	}
}

// TestDeleteUser_WithHistory は返却済みでも履歴が残る利用者の削除が
// 失敗することを検証する。履歴は利用者名のみで参照しているため。
func TestDeleteUser_WithHistory(t *testing.T) {
	s := New(nil)
	s.AddUser("alice", "100")
	s.AddBookCopy("Orwell", "1984")
	if err := s.LoanBook("alice", "1984", date(2024, 1, 1)); err != nil {
		t.Fatalf("LoanBook returned error: %v", err)
	}
	if err := s.EndLoan("alice", "1984", date(2024, 2, 1)); err != nil {
		t.Fatalf("EndLoan returned error: %v", err)
	}

	assertAPIErrorCode(t, s.DeleteUser("alice"), model.ErrCodeUserHasLoans)
}

// TestDeleteUser_Unknown は未登録利用者の削除がUSER_NOT_FOUNDで失敗することを検証する。
func TestDeleteUser_Unknown(t *testing.T) {
	s := New(nil)
	assertAPIErrorCode(t, s.DeleteUser("nobody"), model.ErrCodeUserNotFound)
}

// --- クエリ ---

// TestListBooksOnLoan_RowPerLoan は同一タイトルが複数利用者に貸し出されて
// いる場合、貸出1件につき1行返ることを検証する。
func TestListBooksOnLoan_RowPerLoan(t *testing.T) {
	s := New(nil)
	s.AddBookCopy("Orwell", "1984")
	s.AddBookCopy("Orwell", "1984")
	if err := s.LoanBook("alice", "1984", date(2024, 1, 1)); err != nil {
		t.Fatalf("LoanBook returned error: %v", err)
	}
	if err := s.LoanBook("bob", "1984", date(2024, 1, 2)); err != nil {
		t.Fatalf("LoanBook returned error: %v", err)
	}

	loans := s.ListBooksOnLoan()
	if len(loans) != 2 {
		t.Fatalf("len(loans) = %d, want 2", len(loans))
	}
	for _, l := range loans {
		if l.Title != "1984" || l.Author != "Orwell" {
			t.Errorf("loan = %+v, want title 1984 by Orwell", l)
		}
	}
}

// TestUserLoanHistory_WindowInclusive は開始日と終了日の両方が期間内
// （両端を含む）に収まる履歴のみが返ることを検証する。
func TestUserLoanHistory_WindowInclusive(t *testing.T) {
	s := New(nil)
	s.AddBookCopy("Orwell", "1984")
	s.AddBookCopy("Orwell", "Animal Farm")
	s.AddBookCopy("Huxley", "Brave New World")

	// 期間[2024-01-01, 2024-03-31]に完全に収まる
	mustLoanCycle(t, s, "alice", "1984", date(2024, 1, 1), date(2024, 3, 31))
	// 開始が期間前
	mustLoanCycle(t, s, "alice", "Animal Farm", date(2023, 12, 31), date(2024, 2, 1))
	// 終了が期間後
	mustLoanCycle(t, s, "alice", "Brave New World", date(2024, 3, 1), date(2024, 4, 1))
	// 別の利用者
	mustLoanCycle(t, s, "bob", "1984", date(2024, 2, 1), date(2024, 2, 15))

	records := s.UserLoanHistory("alice", date(2024, 1, 1), date(2024, 3, 31))
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Title != "1984" {
		t.Errorf("Title = %q, want %q", records[0].Title, "1984")
	}
}

// TestUserLoanHistory_ExcludesActiveLoans はアクティブな貸出が期間条件を
// 満たしていても履歴クエリには現れないことを検証する。
func TestUserLoanHistory_ExcludesActiveLoans(t *testing.T) {
	s := New(nil)
	s.AddBookCopy("Orwell", "1984")
	if err := s.LoanBook("alice", "1984", date(2024, 1, 15)); err != nil {
		t.Fatalf("LoanBook returned error: %v", err)
	}

	records := s.UserLoanHistory("alice", date(2024, 1, 1), date(2024, 12, 31))
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0 (active loans excluded)", len(records))
	}
}

// --- 不変条件 ---

// TestConservation_CopiesPlusLoans は貸出・返却・追加をどう織り交ぜても
// 「貸出可能冊数 + アクティブな貸出数 == 追加した冊数」が常に成り立つことを検証する。
func TestConservation_CopiesPlusLoans(t *testing.T) {
	s := New(nil)
	added := 0

	check := func(step string) {
		t.Helper()
		total := availableCopies(t, s, "1984") + activeLoanCount(s, "1984")
		if total != added {
			t.Fatalf("%s: copies+loans = %d, want %d", step, total, added)
		}
	}

	s.AddBookCopy("Orwell", "1984")
	added++
	check("after first add")

	s.AddBookCopy("Orwell", "1984")
	added++
	check("after second add")

	if err := s.LoanBook("alice", "1984", date(2024, 1, 1)); err != nil {
		t.Fatalf("LoanBook returned error: %v", err)
	}
	check("after loan alice")

	if err := s.LoanBook("bob", "1984", date(2024, 1, 2)); err != nil {
		t.Fatalf("LoanBook returned error: %v", err)
	}
	check("after loan bob")

	// 失敗した貸出は何も変えない
	_ = s.LoanBook("carol", "1984", date(2024, 1, 3))
	check("after rejected loan")

	if err := s.EndLoan("alice", "1984", date(2024, 2, 1)); err != nil {
		t.Fatalf("EndLoan returned error: %v", err)
	}
	check("after return alice")

	s.AddBookCopy("Orwell", "1984")
	added++
	check("after third add")
}

// TestScenario_Circulation は仕様どおりの一連のシナリオを検証する。
// 2冊追加 → 2件貸出 → 3件目は拒否 → 1件返却で在庫1冊・履歴1件。
func TestScenario_Circulation(t *testing.T) {
	s := New(nil)
	s.AddAuthor("Orwell", "Fiction")
	s.AddBookCopy("Orwell", "1984")
	s.AddBookCopy("Orwell", "1984")

	if got := availableCopies(t, s, "1984"); got != 2 {
		t.Fatalf("copies = %d, want 2", got)
	}

	if err := s.LoanBook("alice", "1984", date(2024, 1, 1)); err != nil {
		t.Fatalf("loan alice: %v", err)
	}
	if got := availableCopies(t, s, "1984"); got != 1 {
		t.Errorf("copies = %d, want 1", got)
	}

	if err := s.LoanBook("bob", "1984", date(2024, 1, 2)); err != nil {
		t.Fatalf("loan bob: %v", err)
	}
	if got := availableCopies(t, s, "1984"); got != 0 {
		t.Errorf("copies = %d, want 0", got)
	}

	assertAPIErrorCode(t, s.LoanBook("carol", "1984", date(2024, 1, 3)), model.ErrCodeBookNotAvailable)

	if err := s.EndLoan("alice", "1984", date(2024, 2, 1)); err != nil {
		t.Fatalf("end loan alice: %v", err)
	}
	if got := availableCopies(t, s, "1984"); got != 1 {
		t.Errorf("copies = %d, want 1", got)
	}

	records := s.UserLoanHistory("alice", date(2024, 1, 1), date(2024, 12, 31))
	if len(records) != 1 {
		t.Errorf("len(records) = %d, want 1", len(records))
	}

	books := s.ListAvailableBooks()
	if len(books) != 1 || books[0].Title != "1984" || books[0].Copies != 1 {
		t.Errorf("available books = %+v, want [1984 copies=1]", books)
	}
}

// TestConcurrentLoans は並行する貸出・返却の下でも保存則が破れないことを検証する。
func TestConcurrentLoans(t *testing.T) {
	s := New(nil)
	const copies = 8
	for i := 0; i < copies; i++ {
		s.AddBookCopy("Orwell", "1984")
	}

	users := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8", "u9", "u10"}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := s.LoanBook(name, "1984", date(2024, 1, 1)); err == nil {
				_ = s.EndLoan(name, "1984", date(2024, 2, 1))
			}
		}(u)
	}
	wg.Wait()

	total := availableCopies(t, s, "1984") + activeLoanCount(s, "1984")
	if total != copies {
		t.Errorf("copies+loans = %d, want %d", total, copies)
	}
}

// --- メトリクス ---

type recorderSpy struct {
	loans    int
	returns  int
	rejected map[string]int
}

func (r *recorderSpy) RecordLoan()   { r.loans++ }
func (r *recorderSpy) RecordReturn() { r.returns++ }
func (r *recorderSpy) RecordLoanRejected(reason string) {
	if r.rejected == nil {
		r.rejected = make(map[string]int)
	}
	r.rejected[reason]++
}

// TestMetricsRecorder_Called は貸出・返却・拒否がレコーダーに通知されることを検証する。
func TestMetricsRecorder_Called(t *testing.T) {
	spy := &recorderSpy{}
	s := New(spy)
	s.AddBookCopy("Orwell", "1984")

	if err := s.LoanBook("alice", "1984", date(2024, 1, 1)); err != nil {
		t.Fatalf("LoanBook returned error: %v", err)
	}
	_ = s.LoanBook("alice", "1984", date(2024, 1, 2))
	_ = s.LoanBook("bob", "1984", date(2024, 1, 3))
	if err := s.EndLoan("alice", "1984", date(2024, 2, 1)); err != nil {
		t.Fatalf("EndLoan returned error: %v", err)
	}

	if spy.loans != 1 {
		t.Errorf("loans = %d, want 1", spy.loans)
	}
	if spy.returns != 1 {
		t.Errorf("returns = %d, want 1", spy.returns)
	}
	if spy.rejected["already_active"] != 1 {
		t.Errorf("rejected[already_active] = %d, want 1", spy.rejected["already_active"])
	}
	if spy.rejected["not_available"] != 1 {
		t.Errorf("rejected[not_available] = %d, want 1", spy.rejected["not_available"])
	}
}

// --- ヘルパー ---

func mustLoanCycle(t *testing.T, s *Store, user, title string, start, end time.Time) {
	t.Helper()
	if err := s.LoanBook(user, title, start); err != nil {
		t.Fatalf("LoanBook(%s, %s) returned error: %v", user, title, err)
	}
	if err := s.EndLoan(user, title, end); err != nil {
		t.Fatalf("EndLoan(%s, %s) returned error: %v", user, title, err)
	}
}

func assertAPIErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", wantCode)
	}
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("error code = %s, want %s", apiErr.Code, wantCode)
	}
}
