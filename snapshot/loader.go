package snapshot

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/metrics"
)

// Source 是快照原始数据的来源。
type Source interface {
	Name() string
	Load(ctx context.Context) ([]byte, error)
}

// FileSource 从本地文件读取快照。
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file:" + s.Path }

func (s FileSource) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", s.Path, err)
	}
	return data, nil
}

// StoreSource 从 KV 存储（通常是 Redis）的一个 key 读取快照。
type StoreSource struct {
	Store core.Store
	Key   string
}

func (s StoreSource) Name() string { return s.Store.Name() + ":" + s.Key }

func (s StoreSource) Load(ctx context.Context) ([]byte, error) {
	data, err := s.Store.Get(ctx, s.Key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, core.NewDomainError(core.ModuleSnapshot, core.ErrorCodeNotFound, "snapshot: key "+s.Key+" not found")
		}
		return nil, core.NewStoreFailure("snapshot", err)
	}
	return data, nil
}

// Holder 持有当前快照，Reload 成功后原子替换。
// Reload 失败时保留旧快照（全有或全无）。
type Holder struct {
	source  Source
	current atomic.Pointer[Snapshot]

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewHolder(source Source, logger zerolog.Logger, m *metrics.Metrics) *Holder {
	return &Holder{
		source:  source,
		logger:  logger.With().Str("component", "snapshot").Logger(),
		metrics: m,
	}
}

// NewStaticHolder 持有一份固定快照，Reload 无数据源时直接返回它。
func NewStaticHolder(s *Snapshot) *Holder {
	h := &Holder{logger: zerolog.Nop()}
	h.current.Store(s)
	return h
}

// Current 返回当前快照，从未加载成功时为 nil。
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Reload 从数据源重新加载并替换当前快照，返回新快照。
func (h *Holder) Reload(ctx context.Context) (*Snapshot, error) {
	if h.source == nil {
		if cur := h.Current(); cur != nil {
			return cur, nil
		}
		return nil, core.NewDomainError(core.ModuleSnapshot, core.ErrorCodeNotFound, "snapshot: no source configured")
	}

	s, err := h.load(ctx)
	h.metrics.IncSnapshotReload(err)
	if err != nil {
		h.logger.Error().Err(err).Str("source", h.source.Name()).Msg("snapshot reload failed, keeping previous")
		return nil, err
	}
	h.current.Store(s)
	h.logger.Info().
		Str("source", h.source.Name()).
		Int("artworks", len(s.Artworks)).
		Int("profiles", len(s.UserProfiles)).
		Time("generated_at", s.Metadata.GeneratedAt).
		Msg("snapshot loaded")
	return s, nil
}

func (h *Holder) load(ctx context.Context) (*Snapshot, error) {
	data, err := h.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// FallbackArtworks 返回当前快照的作品，供编排层在存储不可用时兜底。
func (h *Holder) FallbackArtworks() []core.Artwork {
	s := h.Current()
	if s == nil {
		return nil
	}
	return s.CoreArtworks()
}
