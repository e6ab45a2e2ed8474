package index

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Holder 持有当前生效的索引快照。
//
//   - Current 无锁读取（atomic.Pointer）
//   - Rebuild 串行化：同一时刻只有一个重建在进行，构建完成后一次原子替换
//   - 构建失败时保留旧索引
type Holder struct {
	builder *Builder
	current atomic.Pointer[Index]
	version atomic.Uint64
	buildMu sync.Mutex
}

func NewHolder(builder *Builder) *Holder {
	h := &Holder{builder: builder}
	h.current.Store(Empty())
	return h
}

// Current 返回当前索引，首次构建前为空索引，永不为 nil。
func (h *Holder) Current() *Index {
	return h.current.Load()
}

// Rebuild 全量重建索引并原子替换。返回新索引；失败时返回错误且当前索引不变。
func (h *Holder) Rebuild(ctx context.Context) (*Index, error) {
	h.buildMu.Lock()
	defer h.buildMu.Unlock()

	start := time.Now()
	x, err := h.builder.Build(ctx)
	if err != nil {
		h.builder.logger.Warn().Err(err).Msg("similarity index rebuild failed, keeping previous index")
		return nil, err
	}
	return h.publish(x, start), nil
}

// Publish 原子替换为给定的索引（例如离线构建好的快照）。
func (h *Holder) Publish(x *Index) *Index {
	h.buildMu.Lock()
	defer h.buildMu.Unlock()
	return h.publish(x, time.Now())
}

func (h *Holder) publish(x *Index, start time.Time) *Index {
	// 发布前赋版本号，发布后 x 不再被修改
	x.Version = h.version.Add(1)
	h.current.Store(x)
	h.builder.metrics.ObserveIndexBuild(time.Since(start), x.Len(), x.Version)
	h.builder.logger.Info().
		Uint64("version", x.Version).
		Int("items", x.Len()).
		Str("weights_version", x.WeightsVersion).
		Msg("similarity index published")
	return x
}
