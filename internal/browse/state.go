// Package browse はキャラクター一覧・詳細画面のビュー状態を管理するコントローラーを提供する。
//
// コントローラーは1画面分の状態を保持し、状態遷移はドキュメント化された操作を通してのみ行う。
// 取得処理が重なった場合は最後にディスパッチされたリクエストの結果だけを状態に反映する。
// 古いリクエストはコンテキストをキャンセルし、完了しても ErrSuperseded を返して状態を変更しない。
package browse

import (
	"errors"

	"github.com/hitoshi/disneydex/internal/model"
)

// ViewState は画面の読み込み状態を表す。
type ViewState int

const (
	// StateIdle はまだ一度も取得していない状態。
	StateIdle ViewState = iota
	// StateLoading は取得中の状態。
	StateLoading
	// StateLoaded は取得に成功した状態。
	StateLoaded
	// StateFailed は取得に失敗した状態。
	StateFailed
)

// String は状態名を返す。
func (s ViewState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrSuperseded は、より新しいリクエストがディスパッチされたため結果を破棄したことを示す。
var ErrSuperseded = errors.New("browse: result superseded by a newer request")

// ユーザー向けメッセージ。
const (
	MessageListFailed     = "キャラクターの取得に失敗しました。しばらく待ってから再度お試しください。"
	MessageSearchNotFound = "キャラクターが見つかりませんでした。別の名前で検索してください。"
	MessageSearchFailed   = "キャラクターの検索に失敗しました。しばらく待ってから再度お試しください。"
	MessageDetailNotFound = "キャラクターが見つかりません。一覧に戻って別のキャラクターを選んでください。"
	MessageDetailFailed   = "キャラクター詳細の取得に失敗しました。しばらく待ってから再度お試しください。"
)

// 画面名。メトリクスのラベルに使う。
const (
	viewList   = "list"
	viewDetail = "detail"
)

// cloneCharacters はスナップショット用にスライスを複製する。
func cloneCharacters(items []model.Character) []model.Character {
	if items == nil {
		return nil
	}
	out := make([]model.Character, len(items))
	copy(out, items)
	return out
}
