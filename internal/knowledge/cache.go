package knowledge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Ayash-Bera/ticketconsole/internal/models"
	"github.com/sirupsen/logrus"
)

// ArticleLister is the backend call the cache is populated from.
type ArticleLister interface {
	ListKnowledge(ctx context.Context) ([]models.Article, error)
}

// Cache holds the session's article index keyed by canonical ID. It is
// replaced wholesale on every Load and never merged or evicted.
type Cache struct {
	lister ArticleLister
	logger *logrus.Logger

	mu       sync.RWMutex
	index    map[models.ID]models.Article
	articles []models.Article
	loaded   bool
}

func NewCache(lister ArticleLister, logger *logrus.Logger) *Cache {
	return &Cache{
		lister: lister,
		logger: logger,
		index:  make(map[models.ID]models.Article),
	}
}

// Load fetches the full article set and swaps it in. On failure the
// previous index is kept.
func (c *Cache) Load(ctx context.Context) ([]models.Article, error) {
	articles, err := c.lister.ListKnowledge(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to load knowledge base")
		return nil, fmt.Errorf("load knowledge: %w", err)
	}

	index := make(map[models.ID]models.Article, len(articles))
	ordered := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		a.ID = models.NormalizeID(a.ID)
		if a.ID == "" {
			continue
		}
		if _, dup := index[a.ID]; !dup {
			ordered = append(ordered, a)
		} else {
			for i := range ordered {
				if ordered[i].ID == a.ID {
					ordered[i] = a
				}
			}
		}
		index[a.ID] = a
	}

	c.mu.Lock()
	c.index = index
	c.articles = ordered
	c.loaded = true
	c.mu.Unlock()

	c.logger.WithField("articles", len(ordered)).Debug("Knowledge cache loaded")
	return cloneArticles(ordered), nil
}

// Get looks an article up by any identifier representation.
func (c *Cache) Get(id interface{}) (models.Article, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.index[models.NormalizeID(id)]
	if !ok {
		return models.Article{}, false
	}
	return cloneArticle(a), true
}

// Title returns the cached title, or an "Article {id}" placeholder while
// the cache is cold or the article unknown.
func (c *Cache) Title(id interface{}) string {
	if a, ok := c.Get(id); ok {
		return a.Title
	}
	return "Article " + models.NormalizeID(id).String()
}

func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.articles)
}

// All returns the articles in backend order.
func (c *Cache) All() []models.Article {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneArticles(c.articles)
}

// Search filters by a case-insensitive substring over title, content and
// category, and by exact category. An empty category or "All" matches
// every category.
func (c *Cache) Search(text, category string) []models.Article {
	needle := strings.ToLower(strings.TrimSpace(text))
	anyCategory := category == "" || category == "All"

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Article, 0)
	for _, a := range c.articles {
		if !anyCategory && a.Category != category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(a.Title), needle) &&
			!strings.Contains(strings.ToLower(a.Content), needle) &&
			!strings.Contains(strings.ToLower(a.Category), needle) {
			continue
		}
		out = append(out, cloneArticle(a))
	}
	return out
}

// Categories lists distinct non-empty categories in first-seen order.
func (c *Cache) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, a := range c.articles {
		if a.Category == "" || seen[a.Category] {
			continue
		}
		seen[a.Category] = true
		out = append(out, a.Category)
	}
	return out
}

func cloneArticle(a models.Article) models.Article {
	if a.Tags != nil {
		a.Tags = append([]string(nil), a.Tags...)
	}
	return a
}

func cloneArticles(in []models.Article) []models.Article {
	out := make([]models.Article, len(in))
	for i, a := range in {
		out[i] = cloneArticle(a)
	}
	return out
}
