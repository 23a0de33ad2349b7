// Package model はドメインモデルを定義する。
package model

import "time"

// User は図書館の利用者を表す。
// 名前が一意キーであり、全ユーザー間で重複しない。
type User struct {
	Name   string
	Number string
}

// Author は著者を表す。名前が一意キー。
type Author struct {
	Name  string
	Genre string
}

// Book は蔵書タイトルを表す。タイトルが一意キー。
// Copiesは「現在貸出可能な冊数」であり、所蔵総数ではない。
// 貸出中の冊数はアクティブな貸出エントリ側で管理される。
type Book struct {
	Title  string
	Author string
	Copies int
}

// LoanKey はアクティブな貸出を識別する(利用者名, タイトル)の組。
// 同一の組に対するアクティブな貸出は高々1件。
type LoanKey struct {
	UserName string
	Title    string
}

// ActiveLoan は現在貸出中の1冊を表す。
type ActiveLoan struct {
	UserName string
	Title    string
	Author   string
	LoanedAt time.Time
}

// LoanRecord は返却済み貸出の履歴レコードを表す。
// 作成後は不変であり、削除されることもない。
// 同じ(利用者, タイトル)の組が履歴上に複数回現れてもよい。
type LoanRecord struct {
	ID       string
	UserName string
	Title    string
	Start    time.Time
	End      time.Time
}
