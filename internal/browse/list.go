package browse

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/hitoshi/disneydex/internal/disneyapi"
	"github.com/hitoshi/disneydex/internal/metrics"
	"github.com/hitoshi/disneydex/internal/model"
)

// ListConfig は一覧コントローラーの設定。
type ListConfig struct {
	// PageSize は1ページあたりの件数（デフォルト: 50）。
	PageSize int
	// Metrics は破棄された結果の記録先。nilの場合は記録しない。
	Metrics metrics.MetricsCollector
}

// ListView は一覧画面の描画用スナップショット。
// Snapshotが返す値はコントローラーの状態と共有しない。
type ListView struct {
	State        ViewState
	Items        []model.Character
	SearchText   string // 表示中の検索結果の検索語。一覧表示中は空
	CurrentPage  int
	TotalPages   int
	Notice       string // 検索で見つからなかった場合の通知
	ErrorMessage string // 取得失敗時のメッセージ
}

// Searching は検索結果を表示中かどうかを返す。
func (v ListView) Searching() bool {
	return v.SearchText != ""
}

// HasPrevious は前のページへ移動できるかを返す。
func (v ListView) HasPrevious() bool {
	return v.CurrentPage > 1
}

// HasNext は次のページへ移動できるかを返す。
func (v ListView) HasNext() bool {
	return v.CurrentPage < v.TotalPages
}

// ListController はキャラクター一覧画面の状態を管理する。
//
// 状態遷移: Idle → Loading → {Loaded, Failed}。
// ページ移動・検索・リセットのたびにLoadingへ戻る。
// 取得失敗や検索の未検出では、それまでに表示していた一覧をそのまま残す。
type ListController struct {
	source   disneyapi.CharacterSource
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
	pageSize int

	mu          sync.Mutex
	seq         uint64
	cancel      context.CancelFunc
	state       ViewState
	loaded      bool
	items       []model.Character
	searchText  string
	currentPage int
	totalPages  int
	notice      string
	errMsg      string
}

// NewListController は新しいListControllerを生成する。
func NewListController(source disneyapi.CharacterSource, logger *slog.Logger, cfg ListConfig) *ListController {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = disneyapi.DefaultPageSize
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	return &ListController{
		source:      source,
		logger:      logger,
		metrics:     cfg.Metrics,
		pageSize:    cfg.PageSize,
		state:       StateIdle,
		currentPage: 1,
		totalPages:  1,
	}
}

// PageSize は1ページあたりの件数を返す。
func (c *ListController) PageSize() int {
	return c.pageSize
}

// LoadPage は指定ページの一覧を取得し、状態を置き換える。
// 1未満のページは1として扱う。TotalPagesを超えるページの抑止は呼び出し側が行う。
// 成功すると検索モードを抜け、TotalPagesはサーバーの値で更新される。
func (c *ListController) LoadPage(ctx context.Context, page int) (model.ListResult, error) {
	if page < 1 {
		page = 1
	}
	return c.load(ctx, page)
}

// Search は名前でキャラクターを検索する。
// 空白のみの検索語はResetと同じ扱い（全件表示に戻す）。
// 一致なしの場合は未検出エラーを返し、通知を設定したうえで直前の一覧を保持する。
// 検索結果はページングされないためTotalPagesは1になる。
func (c *ListController) Search(ctx context.Context, term string) (model.ListResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return c.Reset(ctx)
	}

	reqCtx, seq, cancel := c.begin(ctx)
	defer cancel()

	result, err := c.source.SearchByName(reqCtx, term)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isLatest(seq) {
		return model.ListResult{}, ErrSuperseded
	}
	c.finish()

	if err != nil {
		if model.IsNotFound(err) {
			c.restoreSettledState()
			c.notice = MessageSearchNotFound
			c.logger.Info("検索語に一致するキャラクターがありません",
				slog.String("term", term),
			)
			return model.ListResult{}, err
		}
		c.state = StateFailed
		c.errMsg = MessageSearchFailed
		c.logger.Warn("キャラクターの検索に失敗しました",
			slog.String("term", term),
			slog.String("error", err.Error()),
		)
		return model.ListResult{}, err
	}

	c.items = result.Items
	c.totalPages = 1
	c.currentPage = 1
	c.searchText = term
	c.state = StateLoaded
	c.loaded = true

	return model.ListResult{Items: cloneCharacters(c.items), TotalPages: 1}, nil
}

// Reset は検索語をクリアして1ページ目から取得し直す。
// 検索語とページ番号は取得に成功した時点で切り替わる。失敗した場合は直前の表示を保持する。
func (c *ListController) Reset(ctx context.Context) (model.ListResult, error) {
	return c.load(ctx, 1)
}

// NextPage は次のページへ移動する。
// 最終ページではリクエストを送らず、現在の状態をそのまま返す。
func (c *ListController) NextPage(ctx context.Context) (model.ListResult, error) {
	c.mu.Lock()
	if c.currentPage >= c.totalPages {
		current := c.currentResult()
		c.mu.Unlock()
		return current, nil
	}
	next := c.currentPage + 1
	c.mu.Unlock()

	return c.LoadPage(ctx, next)
}

// PreviousPage は前のページへ移動する。
// 1ページ目ではリクエストを送らず、現在の状態をそのまま返す。
func (c *ListController) PreviousPage(ctx context.Context) (model.ListResult, error) {
	c.mu.Lock()
	if c.currentPage <= 1 {
		current := c.currentResult()
		c.mu.Unlock()
		return current, nil
	}
	prev := c.currentPage - 1
	c.mu.Unlock()

	return c.LoadPage(ctx, prev)
}

// EnsureLoaded は一度も取得していない場合にのみ1ページ目を取得する。
// 画面の初回表示時に使う。
func (c *ListController) EnsureLoaded(ctx context.Context) error {
	c.mu.Lock()
	idle := c.state == StateIdle
	c.mu.Unlock()

	if !idle {
		return nil
	}
	_, err := c.LoadPage(ctx, 1)
	if errors.Is(err, ErrSuperseded) {
		return nil
	}
	return err
}

// DismissMessages は通知とエラーメッセージを消去する。
// メッセージを一度表示した後に呼び出す。
func (c *ListController) DismissMessages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = ""
	c.errMsg = ""
}

// Snapshot は現在の状態の複製を返す。
func (c *ListController) Snapshot() ListView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ListView{
		State:        c.state,
		Items:        cloneCharacters(c.items),
		SearchText:   c.searchText,
		CurrentPage:  c.currentPage,
		TotalPages:   c.totalPages,
		Notice:       c.notice,
		ErrorMessage: c.errMsg,
	}
}

// Close は実行中の取得をキャンセルする。
// 画面を離れたときに呼び出し、以降の結果は反映されない。
func (c *ListController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.seq++
}

// load は指定ページを取得して状態を置き換える。
// 失敗時は一覧・検索語・ページ番号を変更しない。
// サーバーのTotalPagesが要求ページより小さい場合、CurrentPageはTotalPagesに丸める。
func (c *ListController) load(ctx context.Context, page int) (model.ListResult, error) {
	reqCtx, seq, cancel := c.begin(ctx)
	defer cancel()

	result, err := c.source.ListCharacters(reqCtx, page, c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isLatest(seq) {
		return model.ListResult{}, ErrSuperseded
	}
	c.finish()

	if err != nil {
		c.state = StateFailed
		c.errMsg = MessageListFailed
		c.logger.Warn("キャラクター一覧の取得に失敗しました",
			slog.Int("page", page),
			slog.String("error", err.Error()),
		)
		return model.ListResult{}, err
	}

	c.items = result.Items
	c.totalPages = max(result.TotalPages, 1)
	c.currentPage = min(page, c.totalPages)
	c.searchText = ""
	c.state = StateLoaded
	c.loaded = true

	return model.ListResult{Items: cloneCharacters(c.items), TotalPages: c.totalPages}, nil
}

// begin は新しいリクエストをディスパッチする。
// 直前のリクエストをキャンセルし、シーケンス番号を進めてLoadingへ遷移する。
func (c *ListController) begin(ctx context.Context) (context.Context, uint64, context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.state = StateLoading
	c.notice = ""
	c.errMsg = ""

	return reqCtx, c.seq, cancel
}

// isLatest はseqが最新のディスパッチかを判定する。ロックを保持して呼び出す。
// 古い場合は破棄をメトリクスに記録する。
func (c *ListController) isLatest(seq uint64) bool {
	if seq == c.seq {
		return true
	}
	c.metrics.RecordSupersededResult(viewList)
	c.logger.Debug("古い一覧取得の結果を破棄しました",
		slog.Uint64("seq", seq),
		slog.Uint64("latest_seq", c.seq),
	)
	return false
}

// finish は完了したリクエストのキャンセル関数を解放する。ロックを保持して呼び出す。
func (c *ListController) finish() {
	c.cancel = nil
}

// restoreSettledState はLoadingに入る前の確定状態へ戻す。ロックを保持して呼び出す。
func (c *ListController) restoreSettledState() {
	if c.loaded {
		c.state = StateLoaded
	} else {
		c.state = StateIdle
	}
}

// currentResult は現在の一覧をListResultとして返す。ロックを保持して呼び出す。
func (c *ListController) currentResult() model.ListResult {
	return model.ListResult{Items: cloneCharacters(c.items), TotalPages: c.totalPages}
}
