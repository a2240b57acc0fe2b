package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/soratext/soratext/internal/models"
)

// indexSchemaVersion gates sidecar compatibility; bump on layout changes.
const indexSchemaVersion = 2

// Index is the per-file in-memory index over a corpus CSV. It is persisted as
// a JSON sidecar next to the corpus so later runs skip the rebuild when the
// source file is unchanged.
type Index struct {
	SchemaVersion int                            `json:"schema_version"`
	SourceHash    string                         `json:"source_hash"`
	All           []models.PastComment           `json:"all_comments"`
	ByWeather     map[string][]int               `json:"by_weather"`
	ByCount       map[string][]int               `json:"by_count"`
	BySeason      map[string][]int               `json:"by_season"`
}

// HashFile returns the content hash used for index freshness. Not a security
// control, only a change detector.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16), nil
}

// BuildIndex constructs the index from parsed comments.
func BuildIndex(comments []models.PastComment, sourceHash string) *Index {
	idx := &Index{
		SchemaVersion: indexSchemaVersion,
		SourceHash:    sourceHash,
		All:           comments,
		ByWeather:     make(map[string][]int),
		ByCount:       make(map[string][]int),
		BySeason:      make(map[string][]int),
	}
	for i, c := range comments {
		if c.WeatherCondition != "" {
			idx.ByWeather[c.WeatherCondition] = append(idx.ByWeather[c.WeatherCondition], i)
		}
		count := strconv.Itoa(c.UsageCount)
		idx.ByCount[count] = append(idx.ByCount[count], i)
		if c.Season != "" {
			idx.BySeason[c.Season] = append(idx.BySeason[c.Season], i)
		}
	}
	return idx
}

// sidecarPath is cache_dir/{stem}_{hash}.json.
func sidecarPath(indexDir, csvPath, hash string) string {
	stem := strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
	return filepath.Join(indexDir, fmt.Sprintf("%s_%s.json", stem, hash))
}

// LoadSidecar reads a persisted index, validating schema version and source
// hash. One retry covers the rename window of a concurrent writer.
func LoadSidecar(indexDir, csvPath, hash string) (*Index, error) {
	path := sidecarPath(indexDir, csvPath, hash)
	data, err := os.ReadFile(path)
	if err != nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse index sidecar: %w", err)
	}
	if idx.SchemaVersion != indexSchemaVersion {
		return nil, fmt.Errorf("index schema version %d, want %d", idx.SchemaVersion, indexSchemaVersion)
	}
	if idx.SourceHash != hash {
		return nil, fmt.Errorf("index source hash %s, want %s", idx.SourceHash, hash)
	}
	return &idx, nil
}

// SaveSidecar persists the index atomically via temp file + rename.
func SaveSidecar(indexDir, csvPath string, idx *Index) error {
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	path := sidecarPath(indexDir, csvPath, idx.SourceHash)
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	tmp, err := os.CreateTemp(indexDir, ".index-*")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// Comments resolves a slice of indices back into comments.
func (idx *Index) Comments(indices []int) []models.PastComment {
	out := make([]models.PastComment, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(idx.All) {
			out = append(out, idx.All[i])
		}
	}
	return out
}
