package profile

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/rushteam/contentrec/core"
)

// Cache 按用户缓存画像。
//
//   - 首次访问时构建，同一用户的并发构建通过 singleflight 合并
//   - 各用户条目相互独立，只有 Rebuild / Invalidate / Purge 会刷新
//   - 构建降级（事件读取失败）得到的空画像不进入缓存，下次访问重试
//   - Rebuild / Invalidate / Purge 推进代数，代数变化后才完成的旧构建不会写回
type Cache struct {
	builder *Builder
	entries sync.Map // userID -> *core.UserProfile
	group   singleflight.Group

	mu    sync.Mutex
	epoch uint64            // Purge 推进
	gens  map[string]uint64 // Rebuild / Invalidate 推进
}

type generation struct {
	epoch, gen uint64
}

func NewCache(builder *Builder) *Cache {
	return &Cache{builder: builder, gens: make(map[string]uint64)}
}

// Get 返回缓存的画像，不存在时构建。返回的 error 仅表示本次构建降级，画像永不为 nil。
func (c *Cache) Get(ctx context.Context, userID string) (*core.UserProfile, error) {
	if v, ok := c.entries.Load(userID); ok {
		return v.(*core.UserProfile), nil
	}
	return c.build(ctx, userID)
}

// Rebuild 丢弃旧条目并重新构建。
func (c *Cache) Rebuild(ctx context.Context, userID string) (*core.UserProfile, error) {
	c.Invalidate(userID)
	return c.build(ctx, userID)
}

// Invalidate 删除单个用户的缓存条目。
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	c.gens[userID]++
	c.entries.Delete(userID)
	c.mu.Unlock()
	c.group.Forget(userID)
}

// Purge 清空所有用户的缓存。
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.gens = make(map[string]uint64)
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		c.group.Forget(key.(string))
		return true
	})
}

// Len 返回当前缓存的用户数。
func (c *Cache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

type buildResult struct {
	profile *core.UserProfile
	err     error
}

func (c *Cache) current(userID string) generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return generation{epoch: c.epoch, gen: c.gens[userID]}
}

// commit 仅在构建期间代数未变时写入。
func (c *Cache) commit(userID string, g generation, p *core.UserProfile) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != g.epoch || c.gens[userID] != g.gen {
		return false
	}
	c.entries.Store(userID, p)
	return true
}

func (c *Cache) build(ctx context.Context, userID string) (*core.UserProfile, error) {
	// 合并后的构建为所有等待者服务，不随首个调用方取消
	buildCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(userID, func() (interface{}, error) {
		g := c.current(userID)
		p, err := c.builder.Build(buildCtx, userID)
		if err == nil {
			c.commit(userID, g, p)
		}
		return buildResult{profile: p, err: err}, nil
	})
	select {
	case res := <-ch:
		r := res.Val.(buildResult)
		return r.profile, r.err
	case <-ctx.Done():
		return core.NewUserProfile(userID).Seal(), ctx.Err()
	}
}
