// Package disneyapi はDisney API (https://api.disneyapi.dev) のクライアントを提供する。
// キャラクター一覧・名前検索・詳細取得の3エンドポイントのみを扱う。
package disneyapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/disneydex/internal/metrics"
	"github.com/hitoshi/disneydex/internal/model"
)

const (
	// DefaultBaseURL は公開Disney APIのベースURL。
	DefaultBaseURL = "https://api.disneyapi.dev"
	// DefaultPageSize は一覧取得の1ページあたりの件数。
	DefaultPageSize = 50
	// DefaultTimeout は1リクエストあたりのタイムアウト。
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBodySize はレスポンスボディの最大サイズ（5MB）。
	DefaultMaxBodySize int64 = 5 * 1024 * 1024

	userAgent = "Disneydex/1.0"
)

// メトリクス・ログ用のエンドポイント名。
const (
	EndpointList   = "list"
	EndpointSearch = "search"
	EndpointDetail = "detail"
)

// CharacterSource はキャラクター情報の取得元のインターフェース。
// コントローラーのテストではモックに差し替える。
type CharacterSource interface {
	ListCharacters(ctx context.Context, page, pageSize int) (*model.ListResult, error)
	SearchByName(ctx context.Context, name string) (*model.ListResult, error)
	GetCharacter(ctx context.Context, id string) (*model.CharacterDetail, error)
}

// Client はDisney APIのクライアント。
// 取得失敗はすべて model.ErrCodeFetchFailed、一致なしは model.ErrCodeCharacterNotFound の
// *model.APIError として返す。リトライは行わない。
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	metrics     metrics.MetricsCollector
	limiter     *rate.Limiter
	baseURL     string
	timeout     time.Duration
	maxBodySize int64
}

// Option はClientの設定を変更する。
type Option func(*Client)

// WithBaseURL はAPIのベースURLを差し替える。
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout は1リクエストあたりのタイムアウトを設定する。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxBodySize はレスポンスボディの最大サイズを設定する。
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithRateLimit は外部APIへのリクエスト頻度を制限する。
// rが0以下の場合は制限しない。
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) {
		if r <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(r, burst)
	}
}

// WithMetrics はメトリクスの記録先を設定する。
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		httpClient:  httpClient,
		logger:      logger,
		metrics:     metrics.Nop{},
		baseURL:     DefaultBaseURL,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListCharacters は指定ページのキャラクター一覧を取得する。
// GET /characters?page={page}&pageSize={pageSize}
// TotalPagesはサーバーの値をそのまま返す（1未満の場合のみ1に補正する）。
func (c *Client) ListCharacters(ctx context.Context, page, pageSize int) (*model.ListResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))

	var env envelope
	if err := c.get(ctx, EndpointList, "/characters", q, false, &env); err != nil {
		return nil, err
	}

	items := make([]model.Character, len(env.Data))
	for i, ch := range env.Data {
		items[i] = ch.toSummary()
	}

	totalPages := env.Info.TotalPages
	if totalPages < 1 {
		totalPages = 1
	}

	return &model.ListResult{Items: items, TotalPages: totalPages}, nil
}

// SearchByName は名前でキャラクターを検索する。
// GET /character?name={name}
// 一致が0件の場合は未検出エラーを返す。検索結果はページングされない。
func (c *Client) SearchByName(ctx context.Context, name string) (*model.ListResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewCharacterNotFoundError(name)
	}

	q := url.Values{}
	q.Set("name", name)

	var env envelope
	if err := c.get(ctx, EndpointSearch, "/character", q, false, &env); err != nil {
		return nil, err
	}

	if len(env.Data) == 0 {
		c.logger.Info("名前検索で一致するキャラクターがありませんでした",
			slog.String("name", name),
		)
		return nil, model.NewCharacterNotFoundError(name)
	}

	items := make([]model.Character, len(env.Data))
	for i, ch := range env.Data {
		items[i] = ch.toSummary()
	}

	return &model.ListResult{Items: items, TotalPages: 1}, nil
}

// GetCharacter はIDを指定してキャラクター詳細を取得する。
// GET /character/{id}
// dataが存在しない、または404の場合は未検出エラーを返す。
func (c *Client) GetCharacter(ctx context.Context, id string) (*model.CharacterDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, model.NewCharacterNotFoundError(id)
	}

	var env envelope
	if err := c.get(ctx, EndpointDetail, "/character/"+url.PathEscape(id), nil, true, &env); err != nil {
		if model.IsNotFound(err) {
			return nil, model.NewCharacterNotFoundError(id)
		}
		return nil, err
	}

	if len(env.Data) == 0 {
		return nil, model.NewCharacterNotFoundError(id)
	}

	return env.Data[0].toDetail(), nil
}

// get はGETリクエストを送信し、レスポンスJSONをoutにデコードする。
// notFoundOn404がtrueの場合、404を未検出エラーとして扱う。
func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values, notFoundOn404 bool, out any) (err error) {
	start := time.Now()
	outcome := metrics.OutcomeFailure
	defer func() {
		if err == nil {
			return
		}
		if model.IsNotFound(err) {
			outcome = metrics.OutcomeNotFound
		}
		c.metrics.RecordAPICall(endpoint, outcome, time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return fetchFailed("レート制限の待機が中断されました", werr)
		}
	}

	reqURL, perr := url.Parse(c.baseURL + path)
	if perr != nil {
		return fetchFailed("リクエストURLの構築に失敗しました", perr)
	}
	if q != nil {
		reqURL.RawQuery = q.Encode()
	}

	req, rerr := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if rerr != nil {
		return fetchFailed("HTTPリクエストの作成に失敗しました", rerr)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, derr := c.httpClient.Do(req)
	if derr != nil {
		if errors.Is(derr, context.Canceled) {
			c.logger.Debug("Disney API呼び出しがキャンセルされました",
				slog.String("endpoint", endpoint),
			)
		} else {
			c.logger.Error("Disney APIの呼び出しに失敗しました",
				slog.String("endpoint", endpoint),
				slog.String("error", derr.Error()),
			)
		}
		return fetchFailed("Disney APIに接続できませんでした", derr)
	}
	defer resp.Body.Close()

	c.metrics.RecordHTTPStatus(resp.StatusCode)

	if resp.StatusCode == http.StatusNotFound && notFoundOn404 {
		return model.NewCharacterNotFoundError(path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("Disney APIがエラーステータスを返しました",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return model.NewFetchFailedError(fmt.Sprintf("Disney APIがステータス %d を返しました", resp.StatusCode))
	}

	body, berr := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if berr != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", berr.Error()),
		)
		return fetchFailed("レスポンスボディの読み取りに失敗しました", berr)
	}
	if int64(len(body)) > c.maxBodySize {
		c.logger.Error("レスポンスボディがサイズ上限を超えました",
			slog.String("endpoint", endpoint),
			slog.Int64("max_size", c.maxBodySize),
		)
		return model.NewFetchFailedError("レスポンスがサイズ上限を超えました")
	}

	if jerr := json.Unmarshal(body, out); jerr != nil {
		c.logger.Error("Disney APIのレスポンスのパースに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", jerr.Error()),
		)
		return fetchFailed("レスポンスJSONのパースに失敗しました", jerr)
	}

	c.metrics.RecordAPICall(endpoint, metrics.OutcomeSuccess, time.Since(start))
	return nil
}

// fetchFailed は取得失敗エラーを原因エラーと合わせて返す。
// errors.Is で context.Canceled などの原因を判定できる。
func fetchFailed(reason string, cause error) error {
	return fmt.Errorf("%w: %w", model.NewFetchFailedError(reason), cause)
}

var _ CharacterSource = (*Client)(nil)
