package browse

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/hitoshi/disneydex/internal/disneyapi"
	"github.com/hitoshi/disneydex/internal/metrics"
	"github.com/hitoshi/disneydex/internal/model"
)

// DetailView は詳細画面の描画用スナップショット。
type DetailView struct {
	State        ViewState
	ID           string
	Detail       *model.CharacterDetail // Loaded のときのみ非nil
	NotFound     bool
	ErrorMessage string
}

// DetailController はキャラクター詳細画面の状態を管理する。
//
// 状態遷移: Loading → {Loaded, Failed}。IDが変わるたびにLoadingへ戻り、
// 直前の詳細は取得完了を待たずに破棄する。
type DetailController struct {
	source  disneyapi.CharacterSource
	logger  *slog.Logger
	metrics metrics.MetricsCollector

	mu       sync.Mutex
	seq      uint64
	cancel   context.CancelFunc
	state    ViewState
	id       string
	detail   *model.CharacterDetail
	notFound bool
	errMsg   string
}

// NewDetailController は新しいDetailControllerを生成する。
// mcがnilの場合はメトリクスを記録しない。
func NewDetailController(source disneyapi.CharacterSource, logger *slog.Logger, mc metrics.MetricsCollector) *DetailController {
	if logger == nil {
		logger = slog.Default()
	}
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &DetailController{
		source:  source,
		logger:  logger,
		metrics: mc,
		state:   StateIdle,
	}
}

// Load は指定IDのキャラクター詳細を取得する。
// 空のIDはAPIを呼び出さずに未検出として扱う。
// 失敗時は詳細を保持しない（部分的な状態を残さない）。
func (c *DetailController) Load(ctx context.Context, id string) (*model.CharacterDetail, error) {
	id = strings.TrimSpace(id)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	seq := c.seq
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StateLoading
	c.id = id
	c.detail = nil
	c.notFound = false
	c.errMsg = ""
	c.mu.Unlock()
	defer cancel()

	var (
		detail *model.CharacterDetail
		err    error
	)
	if id == "" {
		err = model.NewCharacterNotFoundError(id)
	} else {
		detail, err = c.source.GetCharacter(reqCtx, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		c.metrics.RecordSupersededResult(viewDetail)
		c.logger.Debug("古い詳細取得の結果を破棄しました",
			slog.String("character_id", id),
		)
		return nil, ErrSuperseded
	}
	c.cancel = nil

	if err != nil {
		c.state = StateFailed
		if model.IsNotFound(err) {
			c.notFound = true
			c.errMsg = MessageDetailNotFound
			c.logger.Info("キャラクターが見つかりません",
				slog.String("character_id", id),
			)
		} else {
			c.errMsg = MessageDetailFailed
			c.logger.Warn("キャラクター詳細の取得に失敗しました",
				slog.String("character_id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	c.detail = detail
	c.state = StateLoaded
	return detail, nil
}

// Snapshot は現在の状態の複製を返す。
func (c *DetailController) Snapshot() DetailView {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := DetailView{
		State:        c.state,
		ID:           c.id,
		NotFound:     c.notFound,
		ErrorMessage: c.errMsg,
	}
	if c.detail != nil {
		d := *c.detail
		d.Films = append([]string(nil), c.detail.Films...)
		d.TVShows = append([]string(nil), c.detail.TVShows...)
		d.ParkAttractions = append([]string(nil), c.detail.ParkAttractions...)
		v.Detail = &d
	}
	return v
}

// Close は実行中の取得をキャンセルし、保持している状態を破棄する。
func (c *DetailController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.seq++
	c.state = StateIdle
	c.id = ""
	c.detail = nil
	c.notFound = false
	c.errMsg = ""
}
