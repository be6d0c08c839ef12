package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// maxBackups is how many snapshot directories are kept; older ones are
// evicted first by timestamp order of their names.
const maxBackups = 5

const (
	backupDirName    = "cache_backups"
	backupNamePrefix = "cache_backup_"
)

// Backup copies the whole cache root into a timestamped snapshot under a
// sibling cache_backups directory, then prunes old snapshots down to
// maxBackups. Returns the snapshot path.
func (s *Store) Backup() (string, error) {
	backupRoot := filepath.Join(filepath.Dir(s.root), backupDirName)
	if err := os.MkdirAll(backupRoot, 0o755); err != nil {
		return "", fmt.Errorf("creating backup dir: %w", err)
	}

	dest := filepath.Join(backupRoot, backupNamePrefix+s.now().Format("20060102_150405"))
	if err := copyTree(s.root, dest); err != nil {
		return "", fmt.Errorf("backing up cache: %w", err)
	}
	s.logger.Info("cache backed up", zap.String("path", dest))

	if err := pruneBackups(backupRoot, s.logger); err != nil {
		return dest, fmt.Errorf("pruning backups: %w", err)
	}
	return dest, nil
}

// copyTree recursively copies the directory at src to dst.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// pruneBackups removes the oldest snapshots beyond maxBackups. Snapshot
// names embed their creation timestamp, so lexicographic order is age
// order.
func pruneBackups(backupRoot string, logger *zap.Logger) error {
	entries, err := os.ReadDir(backupRoot)
	if err != nil {
		return err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), backupNamePrefix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for len(names) > maxBackups {
		victim := names[0]
		names = names[1:]
		if err := os.RemoveAll(filepath.Join(backupRoot, victim)); err != nil {
			return err
		}
		logger.Debug("old backup removed", zap.String("path", victim))
	}
	return nil
}
