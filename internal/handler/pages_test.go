package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/hitoshi/disneydex/internal/middleware"
	"github.com/hitoshi/disneydex/internal/model"
	"github.com/hitoshi/disneydex/internal/security"
	"github.com/hitoshi/disneydex/internal/viewsession"
)

// browser はCookieを保持しリダイレクトを追従するテスト用クライアント。
type browser struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client
}

func newBrowser(t *testing.T, src *mockSource) *browser {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	store := viewsession.NewStore(src, logger, viewsession.Config{PageSize: 2})
	t.Cleanup(store.Stop)

	server := httptest.NewServer(NewRouter(&RouterDeps{
		Logger:    logger,
		Sessions:  store,
		Sanitizer: security.NewTextSanitizer(),
		Source:    src,
		PageSize:  2,
	}))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &browser{t: t, server: server, client: &http.Client{Jar: jar}}
}

// get はGETリクエストを送り、ステータスとパース済みHTMLを返す。
func (b *browser) get(path string) (int, *html.Node) {
	b.t.Helper()
	resp, err := b.client.Get(b.server.URL + path)
	if err != nil {
		b.t.Fatalf("GET %s: %v", path, err)
	}
	return parseResponse(b.t, resp)
}

// post はページのCSRFトークンを付けてフォームを送信する。リダイレクト先の画面を返す。
func (b *browser) post(path, token string, form url.Values) (int, *html.Node) {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set(middleware.CSRFFormField, token)
	resp, err := b.client.PostForm(b.server.URL+path, form)
	if err != nil {
		b.t.Fatalf("POST %s: %v", path, err)
	}
	return parseResponse(b.t, resp)
}

func parseResponse(t *testing.T, resp *http.Response) (int, *html.Node) {
	t.Helper()
	defer resp.Body.Close()
	doc, err := html.Parse(resp.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return resp.StatusCode, doc
}

// --- HTML検査ヘルパー ---

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func byClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool { return hasClass(n, class) }
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

func texts(doc *html.Node, class string) []string {
	var out []string
	for _, n := range findAll(doc, byClass(class)) {
		out = append(out, textOf(n))
	}
	return out
}

func csrfToken(t *testing.T, doc *html.Node) string {
	t.Helper()
	inputs := findAll(doc, func(n *html.Node) bool {
		return n.Data == "input" && attr(n, "name") == middleware.CSRFFormField
	})
	if len(inputs) == 0 || attr(inputs[0], "value") == "" {
		t.Fatal("csrf token not found in page")
	}
	return attr(inputs[0], "value")
}

func buttonDisabled(doc *html.Node, formAction string) bool {
	for _, form := range findAll(doc, func(n *html.Node) bool { return n.Data == "form" && attr(n, "action") == formAction }) {
		for _, btn := range findAll(form, func(n *html.Node) bool { return n.Data == "button" }) {
			for _, a := range btn.Attr {
				if a.Key == "disabled" {
					return true
				}
			}
		}
	}
	return false
}

// --- 一覧画面 ---

func TestPageHandler_List_InitialLoad(t *testing.T) {
	src := pagedSource(3)
	b := newBrowser(t, src)

	status, doc := b.get("/")

	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	names := texts(doc, "character-name")
	if len(names) != 2 || names[0] != "Character 1-1" {
		t.Errorf("names = %q", names)
	}
	links := findAll(doc, byClass("character-link"))
	if len(links) != 2 || attr(links[0], "href") != "/character/p1-1" {
		t.Errorf("links = %d, want 2 with the first pointing at /character/p1-1", len(links))
	}
	imgs := findAll(doc, byClass("character-image"))
	if len(imgs) != 1 || attr(imgs[0], "alt") != "Character 1-1" {
		t.Errorf("images = %d, want 1 with alt text", len(imgs))
	}
	if got := texts(doc, "page-info"); len(got) != 1 || got[0] != "1 / 3" {
		t.Errorf("page info = %q", got)
	}
	if !buttonDisabled(doc, "/page/prev") || buttonDisabled(doc, "/page/next") {
		t.Error("previous should be disabled and next enabled on page 1")
	}

	// 再表示では再取得しない
	b.get("/")
	if pages := src.requestedPages(); len(pages) != 1 {
		t.Errorf("requested pages = %v, want one initial load", pages)
	}
}

func TestPageHandler_Pagination(t *testing.T) {
	src := pagedSource(2)
	b := newBrowser(t, src)

	_, doc := b.get("/")
	token := csrfToken(t, doc)

	status, doc := b.post("/page/next", token, nil)
	if status != http.StatusOK {
		t.Fatalf("status after redirect = %d, want %d", status, http.StatusOK)
	}
	if names := texts(doc, "character-name"); len(names) == 0 || names[0] != "Character 2-1" {
		t.Errorf("names on page 2 = %q", names)
	}
	if buttonDisabled(doc, "/page/prev") || !buttonDisabled(doc, "/page/next") {
		t.Error("previous should be enabled and next disabled on the last page")
	}

	// 最終ページでの「次へ」は何もしない
	b.post("/page/next", token, nil)

	_, doc = b.post("/page/prev", token, nil)
	if names := texts(doc, "character-name"); len(names) == 0 || names[0] != "Character 1-1" {
		t.Errorf("names after previous = %q", names)
	}

	want := []int{1, 2, 1}
	got := src.requestedPages()
	if len(got) != len(want) {
		t.Fatalf("requested pages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("requested pages = %v, want %v", got, want)
			break
		}
	}
}

func TestPageHandler_Search(t *testing.T) {
	src := pagedSource(3)
	src.searchFn = func(_ context.Context, name string) (*model.ListResult, error) {
		if name != "Mickey" {
			return nil, model.NewCharacterNotFoundError(name)
		}
		return &model.ListResult{
			Items:      []model.Character{{ID: "4703", Name: "Mickey Mouse"}},
			TotalPages: 1,
		}, nil
	}
	b := newBrowser(t, src)

	_, doc := b.get("/")
	token := csrfToken(t, doc)

	_, doc = b.post("/search", token, url.Values{"q": {"  Mickey "}})

	if names := texts(doc, "character-name"); len(names) != 1 || names[0] != "Mickey Mouse" {
		t.Errorf("names = %q", names)
	}
	if len(texts(doc, "search-summary")) != 1 {
		t.Error("search summary should be shown in search mode")
	}
	inputs := findAll(doc, byClass("search-input"))
	if len(inputs) != 1 || attr(inputs[0], "value") != "Mickey" {
		t.Error("search input should keep the trimmed term")
	}
	if !buttonDisabled(doc, "/page/prev") || !buttonDisabled(doc, "/page/next") {
		t.Error("pagination should be disabled for search results")
	}
}

func TestPageHandler_SearchNotFoundShowsNoticeOnce(t *testing.T) {
	src := pagedSource(3)
	b := newBrowser(t, src)

	_, doc := b.get("/")
	token := csrfToken(t, doc)

	_, doc = b.post("/search", token, url.Values{"q": {"nobody"}})

	notices := texts(doc, "notice")
	if len(notices) != 1 || notices[0] != "キャラクターが見つかりませんでした。別の名前で検索してください。" {
		t.Errorf("notices = %q", notices)
	}
	// 直前の一覧は保持する
	if names := texts(doc, "character-name"); len(names) != 2 || names[0] != "Character 1-1" {
		t.Errorf("names = %q, want previous page kept", names)
	}

	_, doc = b.get("/")
	if notices := texts(doc, "notice"); len(notices) != 0 {
		t.Errorf("notice should be dismissed after display, got %q", notices)
	}
}

func TestPageHandler_ShowAllResetsSearch(t *testing.T) {
	src := pagedSource(3)
	src.searchFn = func(context.Context, string) (*model.ListResult, error) {
		return &model.ListResult{Items: []model.Character{{ID: "1", Name: "Goofy"}}, TotalPages: 1}, nil
	}
	b := newBrowser(t, src)

	_, doc := b.get("/")
	token := csrfToken(t, doc)
	b.post("/search", token, url.Values{"q": {"Goofy"}})

	_, doc = b.post("/show-all", token, nil)

	if len(texts(doc, "search-summary")) != 0 {
		t.Error("search summary should be cleared")
	}
	if names := texts(doc, "character-name"); len(names) == 0 || names[0] != "Character 1-1" {
		t.Errorf("names = %q, want page 1", names)
	}
}

func TestPageHandler_ListFailureShowsError(t *testing.T) {
	src := &mockSource{
		listFn: func(context.Context, int, int) (*model.ListResult, error) {
			return nil, model.NewFetchFailedError("status 503")
		},
	}
	b := newBrowser(t, src)

	status, doc := b.get("/")

	if status != http.StatusOK {
		t.Errorf("status = %d, want %d", status, http.StatusOK)
	}
	if errs := texts(doc, "error"); len(errs) != 1 {
		t.Errorf("error messages = %q, want one", errs)
	}
}

func TestPageHandler_PostWithoutCSRFTokenIsRejected(t *testing.T) {
	src := pagedSource(3)
	b := newBrowser(t, src)
	b.get("/")

	resp, err := b.client.PostForm(b.server.URL+"/search", url.Values{"q": {"Mickey"}})
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
	if len(src.searched()) != 0 {
		t.Error("search should not be dispatched without a valid token")
	}
}

func TestPageHandler_SessionsAreIsolated(t *testing.T) {
	src := pagedSource(3)
	first := newBrowser(t, src)
	_, doc := first.get("/")
	first.post("/page/next", csrfToken(t, doc), nil)

	jar, _ := cookiejar.New(nil)
	other := &browser{t: t, server: first.server, client: &http.Client{Jar: jar}}
	_, doc = other.get("/")

	if got := texts(doc, "page-info"); len(got) != 1 || got[0] != "1 / 3" {
		t.Errorf("new browser page info = %q, want 1 / 3", got)
	}
}

// --- 詳細画面 ---

func TestPageHandler_Detail(t *testing.T) {
	src := &mockSource{
		detailFn: func(_ context.Context, id string) (*model.CharacterDetail, error) {
			return &model.CharacterDetail{
				ID:       id,
				Name:     "Mickey Mouse",
				ImageURL: "https://img.example.com/mickey.png",
				Films:    []string{"Fantasia", "<script>x</script>"},
				TVShows:  []string{"Mickey Mouse Clubhouse"},
			}, nil
		},
	}
	b := newBrowser(t, src)

	status, doc := b.get("/character/4703")

	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d", status, http.StatusOK)
	}
	if got := texts(doc, "character-details-name"); len(got) != 1 || got[0] != "Mickey Mouse" {
		t.Errorf("name = %q", got)
	}
	sections := texts(doc, "character-section")
	if len(sections) != 2 {
		t.Fatalf("sections = %d, want 2 (park attractions omitted)", len(sections))
	}
	if strings.Contains(sections[0], "script") {
		t.Errorf("film list should be sanitized: %q", sections[0])
	}
	if len(texts(doc, "no-appearances")) != 0 {
		t.Error("no-appearances message should not be shown")
	}
	back := findAll(doc, byClass("back-button"))
	if len(back) != 1 || attr(back[0], "href") != "/" {
		t.Error("detail page should link back to the list")
	}
}

func TestPageHandler_DetailWithoutAppearances(t *testing.T) {
	src := &mockSource{
		detailFn: func(_ context.Context, id string) (*model.CharacterDetail, error) {
			return &model.CharacterDetail{ID: id, Name: "Nobody Special"}, nil
		},
	}
	b := newBrowser(t, src)

	_, doc := b.get("/character/1")

	if len(findAll(doc, byClass("character-section"))) != 0 {
		t.Error("no sections should be rendered")
	}
	if len(texts(doc, "no-appearances")) != 1 {
		t.Error("no-appearances message should be shown")
	}
}

func TestPageHandler_DetailTabsAreIndependent(t *testing.T) {
	firstStarted := make(chan struct{})
	release := make(chan struct{})
	src := &mockSource{
		detailFn: func(ctx context.Context, id string) (*model.CharacterDetail, error) {
			if id == "1" {
				close(firstStarted)
				select {
				case <-release:
				case <-ctx.Done():
					return nil, model.NewFetchFailedError(ctx.Err().Error())
				}
			}
			return &model.CharacterDetail{ID: id, Name: "Character " + id}, nil
		},
	}
	b := newBrowser(t, src)
	// 両タブで同じビューセッションCookieを使う
	b.get("/")

	firstStatus := make(chan int, 1)
	go func() {
		resp, err := b.client.Get(b.server.URL + "/character/1")
		if err != nil {
			firstStatus <- 0
			return
		}
		resp.Body.Close()
		firstStatus <- resp.StatusCode
	}()
	<-firstStarted

	status, doc := b.get("/character/2")
	close(release)

	if status != http.StatusOK {
		t.Errorf("second tab status = %d, want %d", status, http.StatusOK)
	}
	if got := texts(doc, "character-details-name"); len(got) != 1 || got[0] != "Character 2" {
		t.Errorf("second tab name = %q", got)
	}
	if got := <-firstStatus; got != http.StatusOK {
		t.Errorf("first tab status = %d, want %d", got, http.StatusOK)
	}
}

func TestPageHandler_DetailErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "not found", err: model.NewCharacterNotFoundError("999"), wantStatus: http.StatusNotFound},
		{name: "fetch failed", err: model.NewFetchFailedError("timeout"), wantStatus: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &mockSource{
				detailFn: func(context.Context, string) (*model.CharacterDetail, error) { return nil, tt.err },
			}
			b := newBrowser(t, src)

			status, doc := b.get("/character/999")

			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if len(texts(doc, "error")) != 1 {
				t.Error("error message should be shown")
			}
			back := findAll(doc, byClass("back-button"))
			if len(back) != 1 || attr(back[0], "href") != "/" {
				t.Error("error page should link back to the list")
			}
		})
	}
}
