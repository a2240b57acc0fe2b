package corpus

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/soratext/soratext/internal/models"
	"github.com/soratext/soratext/internal/observability"
)

// Repository serves past comments from the seasonal corpus. Indexes are built
// lazily per file, gated on a content hash, and persisted as JSON sidecars.
// Query results flow through a three-level cache.
type Repository struct {
	dir      string
	indexDir string
	logger   *zap.Logger

	mu      sync.Mutex
	indexes map[string]*Index // key: season|type

	cache *queryCache
}

// NewRepository creates a repository over dir, storing index sidecars in
// indexDir.
func NewRepository(dir, indexDir string, logger *zap.Logger) *Repository {
	return &Repository{
		dir:      dir,
		indexDir: indexDir,
		logger:   logger,
		indexes:  make(map[string]*Index),
		cache:    newQueryCache(),
	}
}

// GetAllAvailableComments returns every loadable comment, capped per
// (season, type) bucket. Missing corpus files are warnings, not errors.
func (r *Repository) GetAllAvailableComments(capPerBucket int) []models.PastComment {
	var out []models.PastComment
	for _, season := range Seasons {
		for _, typ := range CommentTypes {
			comments := r.bucket(season, typ)
			if capPerBucket > 0 && len(comments) > capPerBucket {
				comments = comments[:capPerBucket]
			}
			out = append(out, comments...)
		}
	}
	return out
}

// GetCommentsBySeason returns both comment types for the given seasons.
func (r *Repository) GetCommentsBySeason(seasons []string) []models.PastComment {
	var out []models.PastComment
	for _, season := range seasons {
		for _, typ := range CommentTypes {
			out = append(out, r.Query(typ, season, "")...)
		}
	}
	return out
}

// SearchByWeather returns comments whose recorded weather condition contains
// the given text.
func (r *Repository) SearchByWeather(conditionText string) []models.PastComment {
	var out []models.PastComment
	for _, season := range Seasons {
		for _, typ := range CommentTypes {
			idx := r.index(season, typ)
			if idx == nil {
				continue
			}
			for cond, indices := range idx.ByWeather {
				if strings.Contains(cond, conditionText) {
					out = append(out, idx.Comments(indices)...)
				}
			}
		}
	}
	return out
}

// GetLeastUsed returns up to limit comments of one type ordered by ascending
// usage count.
func (r *Repository) GetLeastUsed(typ models.CommentType, limit int) []models.PastComment {
	var all []models.PastComment
	for _, season := range Seasons {
		all = append(all, r.bucket(season, typ)...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].UsageCount < all[j].UsageCount })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// Query serves one (type, season, region) lookup through the cache levels:
// an exact L1 hit, an L2 (type+season) hit narrowed by region, or an L3
// (type) hit narrowed by season and region. Narrowed results populate the
// narrower levels. Freshness comes first: a corpus file whose content hash
// changed rebuilds its index and clears the query cache before any level is
// consulted, so a stale hit cannot be served.
func (r *Repository) Query(typ models.CommentType, season, region string) []models.PastComment {
	seasons := []string{season}
	if season == "" {
		seasons = Seasons
	}
	var idxs []*Index
	for _, s := range seasons {
		if idx := r.index(s, typ); idx != nil {
			idxs = append(idxs, idx)
		}
	}

	if hit, lvl, ok := r.cache.get(typ, season, region); ok {
		observability.CommentCacheHitsTotal.WithLabelValues(lvl).Inc()
		return hit
	}

	var result []models.PastComment
	for _, idx := range idxs {
		result = append(result, idx.All...)
	}
	if region != "" {
		result = filterRegion(result, region)
	}
	r.cache.put(typ, season, region, result)
	return result
}

// bucket loads (building or reusing the index of) one (season, type) file.
func (r *Repository) bucket(season string, typ models.CommentType) []models.PastComment {
	idx := r.index(season, typ)
	if idx == nil {
		return nil
	}
	return idx.All
}

// index returns the fresh index for one corpus file, rebuilding when the
// content hash changed or the sidecar is unreadable.
func (r *Repository) index(season string, typ models.CommentType) *Index {
	key := season + "|" + string(typ)
	path := r.filePath(season, typ)

	hash, err := HashFile(path)
	if err != nil {
		if !os.IsNotExist(err) && r.logger != nil {
			r.logger.Warn("corpus file unreadable", zap.String("file", path), zap.Error(err))
		}
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.indexes[key]; ok && idx.SourceHash == hash {
		return idx
	}

	if idx, err := LoadSidecar(r.indexDir, path, hash); err == nil {
		r.indexes[key] = idx
		r.cache.invalidate()
		return idx
	}

	observability.IndexRebuildsTotal.Inc()
	comments, err := loadCSV(path, season, typ)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("corpus load failed", zap.String("file", path), zap.Error(err))
		}
		return nil
	}
	idx := BuildIndex(comments, hash)
	if err := SaveSidecar(r.indexDir, path, idx); err != nil && r.logger != nil {
		r.logger.Warn("index sidecar write failed", zap.String("file", path), zap.Error(err))
	}
	r.indexes[key] = idx
	r.cache.invalidate()
	return idx
}

func (r *Repository) filePath(season string, typ models.CommentType) string {
	return fmt.Sprintf("%s/%s", r.dir, FileName(season, typ))
}

func filterRegion(comments []models.PastComment, region string) []models.PastComment {
	var out []models.PastComment
	for _, c := range comments {
		if c.Location == "" || strings.Contains(c.Location, region) || strings.Contains(region, c.Location) {
			out = append(out, c)
		}
	}
	return out
}

// queryCache is the three-level lookup cache. One mutex guards all levels;
// critical sections are map operations only.
type queryCache struct {
	mu sync.Mutex
	l1 map[string][]models.PastComment // type|season|region
	l2 map[string][]models.PastComment // type|season
	l3 map[string][]models.PastComment // type
}

func newQueryCache() *queryCache {
	return &queryCache{
		l1: make(map[string][]models.PastComment),
		l2: make(map[string][]models.PastComment),
		l3: make(map[string][]models.PastComment),
	}
}

func (q *queryCache) get(typ models.CommentType, season, region string) ([]models.PastComment, string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if hit, ok := q.l1[string(typ)+"|"+season+"|"+region]; ok {
		return hit, "l1", true
	}
	if hit, ok := q.l2[string(typ)+"|"+season]; ok {
		narrowed := hit
		if region != "" {
			narrowed = filterRegion(hit, region)
		}
		q.l1[string(typ)+"|"+season+"|"+region] = narrowed
		return narrowed, "l2", true
	}
	if hit, ok := q.l3[string(typ)]; ok && season != "" {
		narrowed := filterSeason(hit, season)
		q.l2[string(typ)+"|"+season] = narrowed
		if region != "" {
			narrowed = filterRegion(narrowed, region)
		}
		q.l1[string(typ)+"|"+season+"|"+region] = narrowed
		return narrowed, "l3", true
	}
	return nil, "", false
}

func (q *queryCache) put(typ models.CommentType, season, region string, result []models.PastComment) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.l1[string(typ)+"|"+season+"|"+region] = result
	if region == "" {
		if season == "" {
			q.l3[string(typ)] = result
		} else {
			q.l2[string(typ)+"|"+season] = result
		}
	}
}

func (q *queryCache) invalidate() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.l1 = make(map[string][]models.PastComment)
	q.l2 = make(map[string][]models.PastComment)
	q.l3 = make(map[string][]models.PastComment)
}

func filterSeason(comments []models.PastComment, season string) []models.PastComment {
	var out []models.PastComment
	for _, c := range comments {
		if c.Season == season {
			out = append(out, c)
		}
	}
	return out
}
