// Package cache implements the date-sharded JSON store backing the
// pipeline: per-category shard files with retention, an advisory single
// instance lock, and rotated full-directory backups.
//
// The store exclusively owns the files under its root; no other component
// reads or writes shards directly.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Category describes one retention bucket of the cache: where its shards
// live, how shard files are named and how long they are kept.
type Category struct {
	// Name identifies the category in logs and stats.
	Name string
	// Dir is the subdirectory under the cache root holding the shards.
	Dir string
	// Prefix is prepended to the date in shard filenames, e.g. "news_".
	Prefix string
	// RetentionDays is how many days shards stay eligible for loading
	// before cleanup removes them.
	RetentionDays int
}

// Standard categories used by the pipeline.
var (
	Articles = Category{Name: "articles", Dir: "articles", Prefix: "", RetentionDays: 10}
	News     = Category{Name: "news", Dir: "news", Prefix: "news_", RetentionDays: 3}
)

const dateLayout = "2006-01-02"

// Store is a date-sharded JSON key/value store rooted at a single
// directory. It is single-threaded per pipeline invocation; cross-process
// safety comes from AcquireLock, not from per-file locking.
type Store struct {
	root   string
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates the cache root if needed and returns a store over it.
func NewStore(root string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &Store{root: root, logger: logger.Named("cache"), now: time.Now}, nil
}

// Root returns the cache root directory.
func (s *Store) Root() string { return s.root }

// LoadStats reports how shard loading went. Corrupted files are counted,
// never fatal; files outside the retention window are skipped silently.
type LoadStats struct {
	FilesLoaded    int
	FilesCorrupted int
}

// shardFile is the on-disk shape of one shard. "articles" is a legacy
// alias for "entries" still accepted on load.
type shardFile[T any] struct {
	Date       string `json:"date"`
	Entries    []T    `json:"entries"`
	Articles   []T    `json:"articles,omitempty"`
	TotalCount int    `json:"total_count"`
}

func (f *shardFile[T]) items() []T {
	if f.Entries != nil {
		return f.Entries
	}
	return f.Articles
}

// shardPath returns the file path of a category shard for a given day.
func (s *Store) shardPath(cat Category, day time.Time) string {
	name := cat.Prefix + day.Format(dateLayout) + ".json"
	return filepath.Join(s.root, cat.Dir, name)
}

// shardDate extracts the shard day encoded in a filename.
func shardDate(cat Category, name string) (time.Time, error) {
	base := strings.TrimSuffix(name, ".json")
	base = strings.TrimPrefix(base, cat.Prefix)
	return time.Parse(dateLayout, base)
}

// LoadSince loads every shard of cat dated on or after the day of cutoff.
// A shard dated exactly on the cutoff day is included; one day older is
// not. Files whose name or body fails validation are counted as corrupted
// and skipped: a single bad shard never aborts loading the rest. A missing
// category directory is an empty cache, not an error.
func LoadSince[T any](s *Store, cat Category, cutoff time.Time) ([]T, LoadStats, error) {
	var (
		items []T
		stats LoadStats
	)

	dir := filepath.Join(s.root, cat.Dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("category dir missing, treating as empty", zap.String("category", cat.Name))
			return nil, stats, nil
		}
		return nil, stats, fmt.Errorf("reading %s shards: %w", cat.Name, err)
	}

	cutoffDay := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, cutoff.Location())

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		day, err := shardDate(cat, name)
		if err != nil {
			s.logger.Warn("corrupted shard: bad date in filename",
				zap.String("category", cat.Name), zap.String("file", name))
			stats.FilesCorrupted++
			continue
		}
		if day.Before(cutoffDay) {
			continue
		}

		loaded, err := readShard[T](filepath.Join(dir, name))
		if err != nil {
			s.logger.Warn("corrupted shard: skipping",
				zap.String("category", cat.Name), zap.String("file", name), zap.Error(err))
			stats.FilesCorrupted++
			continue
		}
		items = append(items, loaded...)
		stats.FilesLoaded++
	}

	s.logger.Info("shards loaded",
		zap.String("category", cat.Name),
		zap.Int("items", len(items)),
		zap.Int("files_loaded", stats.FilesLoaded),
		zap.Int("files_corrupted", stats.FilesCorrupted))
	return items, stats, nil
}

func readShard[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f shardFile[T]
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing shard: %w", err)
	}
	items := f.items()
	if f.TotalCount != len(items) {
		return nil, fmt.Errorf("shard count mismatch: total_count=%d entries=%d", f.TotalCount, len(items))
	}
	return items, nil
}

// AppendToday merges items into today's shard for cat, keyed by key.
// New items overwrite same-key existing ones; everything else is carried
// over, so repeated runs on the same day accumulate instead of clobbering.
// Returns the total number of entries in the shard after the write.
func AppendToday[T any](s *Store, cat Category, items []T, key func(T) string) (int, error) {
	today := s.now()
	path := s.shardPath(cat, today)

	var existing []T
	if _, err := os.Stat(path); err == nil {
		existing, err = readShard[T](path)
		if err != nil {
			// A corrupt today-shard is replaced rather than aborting the run.
			s.logger.Warn("existing today shard unreadable, overwriting",
				zap.String("category", cat.Name), zap.Error(err))
			existing = nil
		}
	}

	merged := make([]T, 0, len(existing)+len(items))
	index := make(map[string]int, len(existing))
	for _, it := range existing {
		index[key(it)] = len(merged)
		merged = append(merged, it)
	}
	for _, it := range items {
		if i, ok := index[key(it)]; ok {
			merged[i] = it
			continue
		}
		index[key(it)] = len(merged)
		merged = append(merged, it)
	}

	if err := writeShard(s, cat, today, merged); err != nil {
		return 0, err
	}
	s.logger.Info("today shard updated",
		zap.String("category", cat.Name),
		zap.Int("new", len(items)),
		zap.Int("total", len(merged)))
	return len(merged), nil
}

// writeShard atomically rewrites the shard of cat for the given day.
func writeShard[T any](s *Store, cat Category, day time.Time, items []T) error {
	path := s.shardPath(cat, day)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s dir: %w", cat.Name, err)
	}

	f := shardFile[T]{
		Date:       day.Format(dateLayout),
		Entries:    items,
		TotalCount: len(items),
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding shard: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing shard: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing shard: %w", err)
	}
	return nil
}

// CleanupStats reports what Cleanup removed.
type CleanupStats struct {
	FilesRemoved int
	Errors       []string
}

// Cleanup removes shards whose age exceeds their category's retention.
// Per-file failures are collected, never fatal.
func (s *Store) Cleanup(categories []Category) CleanupStats {
	var stats CleanupStats
	now := s.now()

	for _, cat := range categories {
		dir := filepath.Join(s.root, cat.Dir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", cat.Name, err))
			}
			continue
		}

		cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
			AddDate(0, 0, -cat.RetentionDays)

		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			day, err := shardDate(cat, e.Name())
			if err != nil {
				// Unparseable names are left for a human to look at.
				continue
			}
			if !day.Before(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s/%s: %v", cat.Name, e.Name(), err))
				continue
			}
			s.logger.Info("expired shard removed",
				zap.String("category", cat.Name), zap.String("file", e.Name()))
			stats.FilesRemoved++
		}
	}
	return stats
}

// ShardFiles lists the shard filenames currently present for cat, sorted.
func (s *Store) ShardFiles(cat Category) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, cat.Dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
