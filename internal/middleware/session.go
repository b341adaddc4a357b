// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/disneydex/internal/viewsession"
)

// ViewSessionCookieName は一覧画面の状態をひも付けるCookieの名前。
const ViewSessionCookieName = "view_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// viewSessionContextKey はリクエストコンテキストにビューセッションIDを格納するためのキー。
	viewSessionContextKey = contextKey("view_session_id")
	// requestIDContextKey はリクエストコンテキストにリクエストIDを格納するためのキー。
	requestIDContextKey = contextKey("request_id")
	// csrfTokenContextKey はテンプレートに埋め込むCSRFトークンを格納するためのキー。
	csrfTokenContextKey = contextKey("csrf_token")
)

// ViewSessionConfig はビューセッションCookieの設定。
type ViewSessionConfig struct {
	CookieSecure bool
	CookieDomain string
	MaxAge       int // 秒。0の場合はブラウザセッション中のみ有効
}

// NewViewSessionMiddleware はビューセッションCookieを読み取り、IDをコンテキストに注入するミドルウェアを返す。
// Cookieがない、または形式が不正な場合は新しいIDを発行してCookieを設定する。
// 認証は行わず、すべてのリクエストを通す。
func NewViewSessionMiddleware(config ViewSessionConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if cookie, err := r.Cookie(ViewSessionCookieName); err == nil && viewsession.ValidID(cookie.Value) {
				id = cookie.Value
			} else {
				id = viewsession.NewID()
				http.SetCookie(w, &http.Cookie{
					Name:     ViewSessionCookieName,
					Value:    id,
					Path:     "/",
					Domain:   config.CookieDomain,
					MaxAge:   config.MaxAge,
					HttpOnly: true,
					Secure:   config.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), viewSessionContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ViewSessionIDFromContext はリクエストコンテキストからビューセッションIDを取得する。
// ビューセッションミドルウェアを通過したリクエストでのみ有効。
func ViewSessionIDFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(viewSessionContextKey).(string)
	if !ok || id == "" {
		return "", fmt.Errorf("view session ID not found in context")
	}
	return id, nil
}

// ContextWithViewSessionID はコンテキストにビューセッションIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithViewSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, viewSessionContextKey, id)
}
