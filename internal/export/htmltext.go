// Package export は記事一覧のCSV出力とメール送信を提供する。
package export

import (
	"strings"

	"golang.org/x/net/html"
)

// skipElements はテキスト抽出時に中身ごと無視するタグ。
var skipElements = map[string]bool{
	"script": true,
	"style":  true,
}

// blockElements は前後に改行を挿入するブロック要素。
var blockElements = map[string]bool{
	"p": true, "br": true, "div": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true,
	"tr": true, "blockquote": true, "pre": true,
}

// HTMLToText はHTMLからプレーンテキストを抽出する。
// ブロック要素の境界は改行に変換し、連続する空白行は1つにまとめる。
// CSVの本文カラム用で、レイアウトの完全な再現は目的としない。
func HTMLToText(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}

	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))

	depthInSkip := 0
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOFを含むすべてのエラーで抽出を終了する
			return collapseWhitespace(b.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if skipElements[tag] && tt == html.StartTagToken {
				depthInSkip++
			}
			if blockElements[tag] {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if skipElements[tag] && depthInSkip > 0 {
				depthInSkip--
			}
			if blockElements[tag] {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if depthInSkip == 0 {
				b.Write(tokenizer.Text())
			}
		}
	}
}

// collapseWhitespace は行ごとにトリムし、空行の連続を除去する。
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
