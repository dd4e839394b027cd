// Package catalog предоставляет чтение каталога учебных программ
// с кэшированием в Redis. Каталог для движка доступа только на чтение.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmeshcher/eduaccess-system/internal/model"
)

// Store описывает источник учебных программ (хранилище).
type Store interface {
	GetCurriculum(ctx context.Context, id string) (*model.Curriculum, error)
}

// DefaultTTL — время жизни программы в кэше по умолчанию.
const DefaultTTL = 5 * time.Minute

// Cache оборачивает Store и кэширует программы в Redis.
// При недоступном или не настроенном Redis запросы идут напрямую в хранилище:
// кэш ускоряет чтение, но не участвует в корректности.
type Cache struct {
	store Store
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCache создаёт кэширующую обёртку над источником программ.
// rdb может быть nil — тогда кэширование отключено.
func NewCache(store Store, rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store: store,
		rdb:   rdb,
		ttl:   ttl,
	}
}

func cacheKey(id string) string {
	return "curriculum:" + id
}

// GetCurriculum возвращает программу из кэша или из хранилища.
func (c *Cache) GetCurriculum(ctx context.Context, id string) (*model.Curriculum, error) {
	if c.rdb == nil {
		return c.store.GetCurriculum(ctx, id)
	}

	data, err := c.rdb.Get(ctx, cacheKey(id)).Bytes()
	if err == nil {
		var cur model.Curriculum
		if err := json.Unmarshal(data, &cur); err == nil {
			return &cur, nil
		}
		// Повреждённая запись вытесняется и читается заново из хранилища.
		c.rdb.Del(ctx, cacheKey(id))
	} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	cur, err := c.store.GetCurriculum(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(cur); err == nil {
		c.rdb.Set(ctx, cacheKey(id), data, c.ttl)
	}

	return cur, nil
}

// Invalidate вытесняет программу из кэша, например после изменения каталога.
func (c *Cache) Invalidate(ctx context.Context, id string) {
	if c.rdb == nil {
		return
	}
	c.rdb.Del(ctx, cacheKey(id))
}
