package model

import "time"

// AccessToken はZendesk APIのベアラートークン1件を表す。
// トークンは追記のみで保存され、idが最大の行が現在有効なトークンとなる。
type AccessToken struct {
	ID        int64
	Token     string
	CreatedAt time.Time
}
