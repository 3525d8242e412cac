package recipe

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// parser reads one recipe format.
type parser func(io.Reader) ([]ComponentRow, []AdditiveRow, error)

// parsers lists the supported formats in resolution priority order.
var parsers = []struct {
	ext   string
	parse parser
}{
	{".xlsx", ParseXLSX},
	{".yaml", ParseYAML},
	{".yml", ParseYAML},
}

func parserFor(key string) (parser, bool) {
	ext := strings.ToLower(filepath.Ext(key))
	for _, p := range parsers {
		if p.ext == ext {
			return p.parse, true
		}
	}
	return nil, false
}

func stem(key string) string {
	return strings.TrimSuffix(key, filepath.Ext(key))
}

type cachedRecipe struct {
	recipe   *Recipe
	loadedAt time.Time
}

// Catalog resolves recipe selectors against a Source.
//
// With a positive TTL, loaded recipes are cached. Cached recipes are immutable, the map
// itself is guarded by an RWMutex, and Invalidate drops every entry (the directory
// watcher calls it on change).
type Catalog struct {
	source Source
	ttl    time.Duration
	log    zerolog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedRecipe
}

// NewCatalog creates a catalog. A zero ttl disables caching.
func NewCatalog(source Source, ttl time.Duration, log zerolog.Logger) *Catalog {
	return &Catalog{
		source: source,
		ttl:    ttl,
		log:    log.With().Str("component", "recipe_catalog").Logger(),
		now:    time.Now,
		cache:  make(map[string]cachedRecipe),
	}
}

// Source returns the underlying recipe source.
func (c *Catalog) Source() Source {
	return c.source
}

// List returns the selectors of every supported recipe file, sorted and de-duplicated.
func (c *Catalog) List(ctx context.Context) ([]string, error) {
	keys, err := c.source.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(keys))
	selectors := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := parserFor(k); !ok {
			continue
		}
		s := stem(k)
		if !seen[s] {
			seen[s] = true
			selectors = append(selectors, s)
		}
	}
	sort.Strings(selectors)
	return selectors, nil
}

// Load returns the recipe for selector. The selector may name a file directly
// ("EcoWash - 1B.xlsx") or by stem ("EcoWash - 1B").
func (c *Catalog) Load(ctx context.Context, selector string) (*Recipe, error) {
	selector = strings.TrimSpace(selector)
	if err := ValidateSelector(selector); err != nil {
		return nil, err
	}

	if r, ok := c.cached(selector); ok {
		return r, nil
	}

	key, err := c.resolve(ctx, selector)
	if err != nil {
		return nil, err
	}
	parse, _ := parserFor(key)

	body, err := c.source.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	components, additives, err := parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recipe %s: %w", key, err)
	}

	r, err := Build(stem(key), components, additives, c.log)
	if err != nil {
		return nil, err
	}

	c.store(selector, r)
	c.log.Debug().Str("selector", selector).Str("key", key).Str("source", c.source.Describe()).Msg("Recipe loaded")
	return r, nil
}

// Invalidate drops every cached recipe.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cache) > 0 {
		c.log.Debug().Int("entries", len(c.cache)).Msg("Recipe cache invalidated")
	}
	c.cache = make(map[string]cachedRecipe)
}

func (c *Catalog) resolve(ctx context.Context, selector string) (string, error) {
	if _, ok := parserFor(selector); ok {
		return selector, nil
	}

	keys, err := c.source.List(ctx)
	if err != nil {
		return "", err
	}
	available := make(map[string]bool, len(keys))
	for _, k := range keys {
		available[k] = true
	}
	for _, p := range parsers {
		if available[selector+p.ext] {
			return selector + p.ext, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrRecipeNotFound, selector)
}

func (c *Catalog) cached(selector string) (*Recipe, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[selector]
	if !ok || c.now().Sub(entry.loadedAt) > c.ttl {
		return nil, false
	}
	return entry.recipe, true
}

func (c *Catalog) store(selector string, r *Recipe) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[selector] = cachedRecipe{recipe: r, loadedAt: c.now()}
}
