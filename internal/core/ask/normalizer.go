package ask

import (
	"regexp"
	"strings"
)

// 正規化で使用するパターン群。
// コンテナマーカー（<p> / <ul>）を含む入力はそのまま返すことで
// Normalize(Normalize(x)) == Normalize(x) を構成的に保証する。
var (
	boldRe      = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	underlineRe = regexp.MustCompile(`__([^_]+)__`)
	headingRe   = regexp.MustCompile(`(?m)^\s*#{1,6}\s+(.*)$`)
	bulletRe    = regexp.MustCompile(`^\s*(?:[-*+•]|\d+\.)\s+(.*)$`)
)

// Normalize は自由形式の生成テキストを段落・強調・リストのみの
// 制約付きマークアップに変換する。全域関数であり決して失敗しない。
// 最悪の場合でも入力は単一の段落として出力される。
func Normalize(raw string) string {
	// パススルー分岐: 既に構造化済みの出力は変更しない
	if strings.Contains(raw, "<p>") || strings.Contains(raw, "<ul>") {
		return raw
	}

	// 強調マーカーを構造的な強調に変換
	s := boldRe.ReplaceAllString(raw, "<strong>$1</strong>")
	s = underlineRe.ReplaceAllString(s, "<strong>$1</strong>")

	// 見出しはレベルを落として強調として扱う
	s = headingRe.ReplaceAllString(s, "<strong>$1</strong>")

	var out []string
	inList := false

	closeList := func() {
		if inList {
			out = append(out, "</ul>")
			inList = false
		}
	}

	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)

		if m := bulletRe.FindStringSubmatch(line); m != nil {
			if !inList {
				out = append(out, "<ul>")
				inList = true
			}
			out = append(out, "<li>"+m[1]+"</li>")
			continue
		}

		// 空行は段落にならず、開いたリストも閉じない
		if trimmed == "" {
			continue
		}

		closeList()

		// 既に構造マーカーで始まる行はそのまま通す
		if strings.HasPrefix(trimmed, "<") {
			out = append(out, trimmed)
			continue
		}

		out = append(out, "<p>"+trimmed+"</p>")
	}

	closeList()

	return strings.Join(out, "\n")
}
