// Package session はプロセス内で1つだけ有効なテナントセッション状態を提供する。
//
// このツールは単一オペレーター向けであり、同時に操作できるテナントは1つ。
// 複数の認可フローが並行した場合は後勝ちで上書きされる。Contextを
// ハンドラーへ明示的に注入することで、将来リクエストスコープ化する際の
// 切り替え点をここに限定している。
package session

import "sync"

// Context は現在の操作対象テナントと、そのテナントのキャッシュ済み
// アクセストークンを保持する。全フィールドはプロセス生存期間中有効。
type Context struct {
	mu        sync.RWMutex
	subdomain string
	token     string
}

// NewContext は空のContextを生成する。
func NewContext() *Context {
	return &Context{}
}

// SetSubdomain は操作対象のZendeskサブドメインを記録する。
// 認可フロー開始時に呼ばれる。
func (c *Context) SetSubdomain(subdomain string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subdomain = subdomain
}

// Subdomain は記録済みのサブドメインを返す。未設定の場合は空文字列。
func (c *Context) Subdomain() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subdomain
}

// SetToken は認可完了時に取得したアクセストークンをキャッシュする。
func (c *Context) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token はキャッシュ済みのアクセストークンを返す。未設定の場合は空文字列。
func (c *Context) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}
