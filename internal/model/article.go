package model

import (
	"encoding/json"
	"strconv"
)

// Article はHelp Centerの記事1件を表す。
// フィールドはAPIのレスポンスをそのまま保持する不透明なペイロードであり、
// ページネーション制御以外では内容を解釈しない。
type Article map[string]any

// stringField はキーに対応する値を文字列として返す。無い場合は空文字列。
func (a Article) stringField(key string) string {
	v, ok := a[key]
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

// ID は記事IDを文字列として返す。
func (a Article) ID() string { return a.stringField("id") }

// Title は記事タイトルを返す。
func (a Article) Title() string { return a.stringField("title") }

// Body は記事本文（HTML）を返す。
func (a Article) Body() string { return a.stringField("body") }

// HTMLURL は記事の公開URLを返す。
func (a Article) HTMLURL() string { return a.stringField("html_url") }

// UpdatedAt は記事の更新日時（APIの文字列表現のまま）を返す。
func (a Article) UpdatedAt() string { return a.stringField("updated_at") }

// ArticlePage はページネーションで取得した1バッチを表す。
// NextPage / PreviousPage はAPIが返すカーソルURLで、nilは終端を意味する。
type ArticlePage struct {
	Articles     []Article
	NextPage     *string
	PreviousPage *string
}

// Profile はZendeskのログインユーザー情報を表す。表示専用。
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
