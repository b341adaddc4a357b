// Package viewsession はブラウザごとの一覧画面の状態を保持する。
//
// 状態はメモリ上にのみ存在し、一定時間アクセスのないエントリはバックグラウンドで破棄する。
package viewsession

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/disneydex/internal/browse"
	"github.com/hitoshi/disneydex/internal/disneyapi"
	"github.com/hitoshi/disneydex/internal/metrics"
)

// Config はStoreの設定を保持する。
type Config struct {
	TTL             time.Duration // 最終アクセスからの有効期限
	CleanupInterval time.Duration // 期限切れエントリの掃除間隔
	PageSize        int
	Metrics         metrics.MetricsCollector
}

// DefaultConfig はデフォルト設定を返す。
func DefaultConfig() Config {
	return Config{
		TTL:             30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		PageSize:        disneyapi.DefaultPageSize,
	}
}

// Session は1つのブラウザに対応する一覧画面の状態。
type Session struct {
	List *browse.ListController
}

// close は実行中の取得をキャンセルする。
func (s *Session) close() {
	s.List.Close()
}

type entry struct {
	session    *Session
	lastAccess time.Time
}

// Store はセッションIDと一覧コントローラーの対応を管理する。
type Store struct {
	source  disneyapi.CharacterSource
	logger  *slog.Logger
	config  Config
	metrics metrics.MetricsCollector
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewStore は新しいStoreを生成し、期限切れエントリの掃除を開始する。
func NewStore(source disneyapi.CharacterSource, logger *slog.Logger, cfg Config) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = def.PageSize
	}
	mc := cfg.Metrics
	if mc == nil {
		mc = metrics.Nop{}
	}

	s := &Store{
		source:  source,
		logger:  logger,
		config:  cfg,
		metrics: mc,
		now:     time.Now,
		entries: make(map[string]*entry),
		stopCh:  make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// NewID は新しいセッションIDを発行する。
func NewID() string {
	return uuid.NewString()
}

// ValidID はセッションIDとして受け付ける形式かを判定する。
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get はセッションIDに対応するSessionを返す。
// 存在しない場合は新しく作成する。
func (s *Store) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		e.lastAccess = s.now()
		return e.session
	}

	sess := &Session{
		List: browse.NewListController(s.source, s.logger, browse.ListConfig{
			PageSize: s.config.PageSize,
			Metrics:  s.metrics,
		}),
	}
	s.entries[id] = &entry{session: sess, lastAccess: s.now()}
	s.metrics.SetViewSessions(len(s.entries))

	return sess
}

// Delete はセッションを破棄する。実行中の取得はキャンセルされる。
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		e.session.close()
		delete(s.entries, id)
		s.metrics.SetViewSessions(len(s.entries))
	}
}

// Len は保持しているセッション数を返す。
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop は掃除のバックグラウンドゴルーチンを停止し、すべてのセッションを破棄する。
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)

		s.mu.Lock()
		defer s.mu.Unlock()
		for id, e := range s.entries {
			e.session.close()
			delete(s.entries, id)
		}
		s.metrics.SetViewSessions(0)
	})
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup は最終アクセスからTTLを超えたエントリを削除する。
func (s *Store) cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.lastAccess) > s.config.TTL {
			e.session.close()
			delete(s.entries, id)
			removed++
		}
	}
	if removed > 0 {
		s.metrics.SetViewSessions(len(s.entries))
		s.logger.Debug("期限切れのビューセッションを削除しました",
			slog.Int("removed", removed),
			slog.Int("remaining", len(s.entries)),
		)
	}
}
