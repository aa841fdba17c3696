package explorer

import (
	"log"
	"sync"
	"time"

	"github.com/shlpu/TSAT/lib/rpm"
	"github.com/shlpu/TSAT/lib/store"
)

const (
	MODEL_CACHE_SIZE = 10
)

// A ModelSource is where the explorer reads models from.
type ModelSource interface {
	List() ([]store.Summary, error)
	Load(id string) (*rpm.TrainedModel, error)
	LoadResult(id string) (*rpm.TestResult, error)
	Delete(id string) error
}

type cachedModel struct {
	model    *rpm.TrainedModel
	lastUsed time.Time
}

// ModelExplorer serves stored models over http. Decoded models are cached,
// since a model carries its whole training set.
type ModelExplorer struct {
	source ModelSource

	mu         sync.Mutex
	modelCache map[string]*cachedModel
	maxAge     time.Duration
	ticker     *time.Ticker
	done       chan struct{}
}

func NewModelExplorer(source ModelSource) *ModelExplorer {
	return &ModelExplorer{
		source:     source,
		modelCache: make(map[string]*cachedModel, MODEL_CACHE_SIZE),
	}
}

// Initialize starts evicting cached models unused for maxAge.
func (c *ModelExplorer) Initialize(maxAge time.Duration) {
	c.maxAge = maxAge
	c.ticker = time.NewTicker(time.Minute)
	c.done = make(chan struct{})

	go func() {
		for {
			select {
			case <-c.ticker.C:
				c.evictStale(time.Now())
			case <-c.done:
				return
			}
		}
	}()
}

func (c *ModelExplorer) Shutdown() {
	if c.ticker != nil {
		c.ticker.Stop()
		close(c.done)
		c.ticker = nil
	}
}

func (c *ModelExplorer) evictStale(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, m := range c.modelCache {
		if c.maxAge > 0 && now.Sub(m.lastUsed) > c.maxAge {
			log.Printf("evicting model %s from cache\n", id)
			delete(c.modelCache, id)
		}
	}
}

// evictOldest makes room for one more model.
func (c *ModelExplorer) evictOldest() {
	oldest := ""
	var oldestTime time.Time
	for id, m := range c.modelCache {
		if oldest == "" || m.lastUsed.Before(oldestTime) {
			oldest, oldestTime = id, m.lastUsed
		}
	}
	delete(c.modelCache, oldest)
}

func (c *ModelExplorer) model(id string) (*rpm.TrainedModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.modelCache[id]; ok {
		cached.lastUsed = time.Now()
		return cached.model, nil
	}
	m, err := c.source.Load(id)
	if err != nil {
		return nil, err
	}
	if len(c.modelCache) >= MODEL_CACHE_SIZE {
		c.evictOldest()
	}
	c.modelCache[id] = &cachedModel{model: m, lastUsed: time.Now()}
	return m, nil
}

func (c *ModelExplorer) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.modelCache, id)
}
