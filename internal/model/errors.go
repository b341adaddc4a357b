// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, character, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeCharacterNotFound = "CHARACTER_NOT_FOUND"
	ErrCodeFetchFailed       = "FETCH_FAILED"
	ErrCodeInvalidPage       = "INVALID_PAGE"
	ErrCodeInvalidURL        = "INVALID_URL"
	ErrCodeSSRFBlocked       = "SSRF_BLOCKED"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewCharacterNotFoundError は検索語またはIDに一致するキャラクターが存在しない場合のエラーを生成する。
// queryには検索語またはキャラクターIDを渡す。
func NewCharacterNotFoundError(query string) *APIError {
	return &APIError{
		Code:     ErrCodeCharacterNotFound,
		Message:  fmt.Sprintf("キャラクターが見つかりません: %s", query),
		Category: "character",
		Action:   "別の名前で検索してください。",
	}
}

// NewFetchFailedError はDisney APIからの取得失敗エラーを生成する。
// reasonはログ用の詳細であり、ユーザー向けの文言は汎用的なものに留める。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("キャラクター情報の取得に失敗しました: %s", reason),
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidPageError は無効なページ番号エラーを生成する。
func NewInvalidPageError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPage,
		Message:  fmt.Sprintf("無効なページ番号です: %s", raw),
		Category: "validation",
		Action:   "1以上の整数を指定してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "http:// または https:// で始まるURLを設定してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているAPIのURLを設定してください。ローカル環境のモックを使う場合は ALLOW_PRIVATE_API=true を設定してください。",
	}
}

// NewRateLimitedError はリクエスト頻度の上限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。原因はユーザーに返さない。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// HasCode はerrのチェーンに指定コードのAPIErrorが含まれるかを返す。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// IsNotFound はerrがキャラクター未検出エラーかどうかを返す。
func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeCharacterNotFound)
}

// IsFetchFailed はerrが取得失敗エラーかどうかを返す。
func IsFetchFailed(err error) bool {
	return HasCode(err, ErrCodeFetchFailed)
}
