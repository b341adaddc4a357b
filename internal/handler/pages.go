package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/disneydex/internal/browse"
	"github.com/hitoshi/disneydex/internal/disneyapi"
	"github.com/hitoshi/disneydex/internal/metrics"
	"github.com/hitoshi/disneydex/internal/middleware"
	"github.com/hitoshi/disneydex/internal/model"
	"github.com/hitoshi/disneydex/internal/security"
	"github.com/hitoshi/disneydex/internal/viewsession"
)

// SessionProvider はビューセッションIDから画面コントローラーを取得するインターフェース。
type SessionProvider interface {
	Get(id string) *viewsession.Session
}

// PageHandler は一覧・詳細画面のHTTPハンドラー。
// 一覧の状態はビューセッションごとに保持し、POSTでの操作後は一覧へリダイレクトする。
// 詳細画面はリクエストごとに独立したコントローラーで取得する。
type PageHandler struct {
	sessions  SessionProvider
	source    disneyapi.CharacterSource
	sanitizer security.TextSanitizerService
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
}

// NewPageHandler はPageHandlerを生成する。mcがnilの場合はメトリクスを記録しない。
func NewPageHandler(sessions SessionProvider, source disneyapi.CharacterSource, sanitizer security.TextSanitizerService, mc metrics.MetricsCollector, logger *slog.Logger) *PageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &PageHandler{
		sessions:  sessions,
		source:    source,
		sanitizer: sanitizer,
		metrics:   mc,
		logger:    logger,
	}
}

// characterCard は一覧に表示する1件分のキャラクター。
type characterCard struct {
	ID       string
	Name     string
	ImageURL string
}

// listPage は一覧画面のテンプレートデータ。
type listPage struct {
	Title        string
	CSRFToken    string
	Items        []characterCard
	SearchText   string
	Searching    bool
	Loading      bool
	CurrentPage  int
	TotalPages   int
	HasPrevious  bool
	HasNext      bool
	Notice       string
	ErrorMessage string
}

// detailPage は詳細画面のテンプレートデータ。
type detailPage struct {
	Title           string
	Name            string
	ImageURL        string
	Films           []string
	TVShows         []string
	ParkAttractions []string
	HasAppearances  bool
}

// errorPage はエラー画面のテンプレートデータ。
type errorPage struct {
	Title   string
	Message string
}

// List は一覧画面を表示する。
// GET /
// 初回表示時のみ1ページ目を取得する。通知とエラーメッセージは一度表示したら消去する。
func (h *PageHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	// 取得失敗はスナップショットのエラーメッセージとして表示する
	_ = sess.List.EnsureLoaded(r.Context())

	view := sess.List.Snapshot()
	sess.List.DismissMessages()

	renderPage(w, h.logger, http.StatusOK, pageList, h.toListPage(r, view))
}

// Search は名前検索を行い一覧へリダイレクトする。
// POST /search （フォーム: q）
// 空の検索語は「すべて表示」と同じ扱い。
func (h *PageHandler) Search(w http.ResponseWriter, r *http.Request) {
	term := r.PostFormValue("q")
	h.dispatch(w, r, "search", func(ctx context.Context, list *browse.ListController) error {
		_, err := list.Search(ctx, term)
		return err
	})
}

// ShowAll は検索をリセットして1ページ目を表示する。
// POST /show-all
func (h *PageHandler) ShowAll(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, "show_all", func(ctx context.Context, list *browse.ListController) error {
		_, err := list.Reset(ctx)
		return err
	})
}

// NextPage は次のページへ移動する。
// POST /page/next
func (h *PageHandler) NextPage(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, "next_page", func(ctx context.Context, list *browse.ListController) error {
		_, err := list.NextPage(ctx)
		return err
	})
}

// PreviousPage は前のページへ移動する。
// POST /page/prev
func (h *PageHandler) PreviousPage(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, "previous_page", func(ctx context.Context, list *browse.ListController) error {
		_, err := list.PreviousPage(ctx)
		return err
	})
}

// Detail はキャラクター詳細画面を表示する。
// GET /character/{id}
// 未検出は404、取得失敗は502でエラー画面を返す。エラー画面には一覧へ戻るリンクを含む。
// 同じブラウザの別タブで開いた詳細画面どうしは互いに影響しない。
func (h *PageHandler) Detail(w http.ResponseWriter, r *http.Request) {
	ctl := browse.NewDetailController(h.source, h.logger, h.metrics)
	defer ctl.Close()

	detail, err := ctl.Load(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		renderPage(w, h.logger, http.StatusOK, pageDetail, h.toDetailPage(detail))
	case model.IsNotFound(err):
		renderPage(w, h.logger, http.StatusNotFound, pageError, errorPage{
			Title:   "キャラクターが見つかりません",
			Message: browse.MessageDetailNotFound,
		})
	default:
		renderPage(w, h.logger, http.StatusBadGateway, pageError, errorPage{
			Title:   "取得エラー",
			Message: browse.MessageDetailFailed,
		})
	}
}

// dispatch は一覧コントローラーへの操作を実行し、一覧画面へ303でリダイレクトする。
// 操作の結果（通知・エラー）はコントローラーの状態として一覧画面に表示する。
func (h *PageHandler) dispatch(w http.ResponseWriter, r *http.Request, action string, op func(context.Context, *browse.ListController) error) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := op(r.Context(), sess.List); err != nil {
		level := slog.LevelDebug
		if !errors.Is(err, browse.ErrSuperseded) && !model.IsNotFound(err) {
			level = slog.LevelWarn
		}
		h.logger.Log(r.Context(), level, "list action did not complete",
			slog.String("action", action),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// session はリクエストのビューセッションに対応するコントローラーを返す。
func (h *PageHandler) session(w http.ResponseWriter, r *http.Request) (*viewsession.Session, bool) {
	id, err := middleware.ViewSessionIDFromContext(r.Context())
	if err != nil {
		h.logger.Error("view session is not available", slog.String("path", r.URL.Path))
		middleware.WriteInternalServerError(w)
		return nil, false
	}
	return h.sessions.Get(id), true
}

// toListPage はスナップショットをテンプレートデータに変換する。
// 外部APIから取得した文字列はサニタイズしてから渡す。
func (h *PageHandler) toListPage(r *http.Request, view browse.ListView) listPage {
	items := make([]characterCard, 0, len(view.Items))
	for _, c := range view.Items {
		items = append(items, characterCard{
			ID:       c.ID,
			Name:     h.sanitizer.Text(c.Name),
			ImageURL: h.sanitizer.ImageURL(c.ImageURL),
		})
	}

	return listPage{
		Title:        "キャラクター一覧",
		CSRFToken:    middleware.CSRFTokenFromContext(r.Context()),
		Items:        items,
		SearchText:   view.SearchText,
		Searching:    view.Searching(),
		Loading:      view.State == browse.StateLoading,
		CurrentPage:  view.CurrentPage,
		TotalPages:   view.TotalPages,
		HasPrevious:  view.HasPrevious(),
		HasNext:      view.HasNext(),
		Notice:       view.Notice,
		ErrorMessage: view.ErrorMessage,
	}
}

// toDetailPage はキャラクター詳細をテンプレートデータに変換する。
func (h *PageHandler) toDetailPage(d *model.CharacterDetail) detailPage {
	name := h.sanitizer.Text(d.Name)
	page := detailPage{
		Title:           name,
		Name:            name,
		ImageURL:        h.sanitizer.ImageURL(d.ImageURL),
		Films:           h.sanitizer.Texts(d.Films),
		TVShows:         h.sanitizer.Texts(d.TVShows),
		ParkAttractions: h.sanitizer.Texts(d.ParkAttractions),
	}
	page.HasAppearances = len(page.Films) > 0 || len(page.TVShows) > 0 || len(page.ParkAttractions) > 0
	return page
}
