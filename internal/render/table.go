// Package render はコンソール表示用の罫線付きテキストテーブルを生成する。
// ドメイン知識を持たない純粋な整形ユーティリティ。
package render

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Table はヘッダー行とデータ行から罫線付きテキストテーブルを生成する。
//
// 列幅はヘッダーを含む各列の最大文字幅。罫線は「+」「-」、セル区切りは「|」で、
// セル内容の前後に1文字ぶんの空白を置く。出力は改行で始まり、罫線はヘッダーの
// 上・下と末尾の3箇所に入る。データ行が0件の場合はヘッダーのみのテーブルを返す。
// ヘッダーと列数の異なる行が含まれる場合はエラーを返す。
func Table(header []string, rows [][]string) (string, error) {
	if len(header) == 0 {
		return "", fmt.Errorf("header must not be empty")
	}

	widths := make([]int, len(header))
	for col, h := range header {
		widths[col] = utf8.RuneCountInString(h)
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return "", fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(header))
		}
		for col, cell := range row {
			if w := utf8.RuneCountInString(cell); w > widths[col] {
				widths[col] = w
			}
		}
	}

	var b strings.Builder
	b.WriteString("\n")
	writeBorder(&b, widths)
	writeRow(&b, header, widths)
	writeBorder(&b, widths)
	for _, row := range rows {
		writeRow(&b, row, widths)
	}
	writeBorder(&b, widths)
	return b.String(), nil
}

// writeBorder は「+----+----+」形式の水平罫線を1行書き込む。
func writeBorder(b *strings.Builder, widths []int) {
	for _, w := range widths {
		b.WriteString("+")
		b.WriteString(strings.Repeat("-", w+2))
	}
	b.WriteString("+\n")
}

// writeRow は各セルを列幅まで左詰めした「| a | b |」形式の行を1行書き込む。
func writeRow(b *strings.Builder, cells []string, widths []int) {
	for col, cell := range cells {
		pad := widths[col] - utf8.RuneCountInString(cell)
		b.WriteString("| ")
		b.WriteString(cell)
		b.WriteString(strings.Repeat(" ", pad))
		b.WriteString(" ")
	}
	b.WriteString("|\n")
}
