package translation

import (
	"crypto/md5"
	"fmt"
	"sync"
)

// CacheStats 缓存统计
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// MemoryCache 进程内响应缓存。温度为 0 时同一提示词的结果可复用，
// 重跑未改动的批次不再付出网络调用
type MemoryCache struct {
	data  map[string]string
	mutex sync.RWMutex
	stats CacheStats
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]string)}
}

// CacheKey 由模型与完整消息内容生成缓存键
func CacheKey(model string, messages []Message) string {
	h := md5.New()
	fmt.Fprint(h, model)
	for _, m := range messages {
		fmt.Fprint(h, "\x00", m.Role, "\x00", m.Content)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Get 获取缓存
func (c *MemoryCache) Get(key string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	value, ok := c.data[key]
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return value, ok
}

// Set 设置缓存
func (c *MemoryCache) Set(key, value string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data[key] = value
}

// Stats 返回缓存统计
func (c *MemoryCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.stats
}
