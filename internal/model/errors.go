// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, circulation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeBookNotAvailable  = "BOOK_NOT_AVAILABLE"
	ErrCodeLoanAlreadyActive = "LOAN_ALREADY_ACTIVE"
	ErrCodeLoanNotFound      = "LOAN_NOT_FOUND"
	ErrCodeBookNotFound      = "BOOK_NOT_FOUND"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeUserHasLoans      = "USER_HAS_LOANS"
	ErrCodeInvalidDate       = "INVALID_DATE"
)

// NewBookNotAvailableError は貸出可能な在庫がない場合のエラーを生成する。
// タイトル未登録と在庫0冊の両方でこのエラーが返される。
func NewBookNotAvailableError(title string) *APIError {
	return &APIError{
		Code:     ErrCodeBookNotAvailable,
		Message:  fmt.Sprintf("貸出可能な蔵書がありません: %s", title),
		Category: "circulation",
		Action:   "蔵書一覧で貸出可能なタイトルを確認してください。",
	}
}

// NewLoanAlreadyActiveError は同一利用者が同一タイトルを貸出中に再度借りようとした場合のエラーを生成する。
func NewLoanAlreadyActiveError(userName, title string) *APIError {
	return &APIError{
		Code:     ErrCodeLoanAlreadyActive,
		Message:  fmt.Sprintf("利用者 %s は %s を貸出中です。", userName, title),
		Category: "circulation",
		Action:   "返却処理を行ってから再度貸出してください。",
	}
}

// NewLoanNotFoundError はアクティブな貸出が存在しない場合のエラーを生成する。
func NewLoanNotFoundError(userName, title string) *APIError {
	return &APIError{
		Code:     ErrCodeLoanNotFound,
		Message:  fmt.Sprintf("貸出記録が見つかりません: %s / %s", userName, title),
		Category: "circulation",
		Action:   "利用者名とタイトルを確認してください。",
	}
}

// NewBookNotFoundError はタイトルが未登録の場合のエラーを生成する。
func NewBookNotFoundError(title string) *APIError {
	return &APIError{
		Code:     ErrCodeBookNotFound,
		Message:  fmt.Sprintf("指定されたタイトルが見つかりません: %s", title),
		Category: "circulation",
		Action:   "タイトルを確認してください。",
	}
}

// NewUserNotFoundError は利用者が未登録の場合のエラーを生成する。
func NewUserNotFoundError(userName string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定された利用者が見つかりません: %s", userName),
		Category: "circulation",
		Action:   "利用者名を確認してください。",
	}
}

// NewUserHasLoansError は貸出記録が残っている利用者を削除しようとした場合のエラーを生成する。
// アクティブな貸出と過去の貸出履歴のどちらか一方でも残っていれば削除できない。
func NewUserHasLoansError(userName string) *APIError {
	return &APIError{
		Code:     ErrCodeUserHasLoans,
		Message:  fmt.Sprintf("利用者 %s には貸出記録が残っています。", userName),
		Category: "circulation",
		Action:   "貸出履歴が残っている利用者は削除できません。",
	}
}

// NewInvalidDateError は日付として不正な年月日が指定された場合のエラーを生成する。
func NewInvalidDateError(year, month, day int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("無効な日付です: %d-%d-%d", year, month, day),
		Category: "validation",
		Action:   "実在する年月日を指定してください。",
	}
}
