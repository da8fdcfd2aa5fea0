package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const backupPrefix = "jeeves_backup_"

// Backup делает консистентный снимок базы в dir через VACUUM INTO,
// затем удаляет самые старые копии сверх keep. Возвращает путь к новому файлу.
func (s *Store) Backup(ctx context.Context, dir string, keep int) (string, error) {
	defer observeDB("db.backup")()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name := backupPrefix + s.now().Format("2006-01-02_15-04-05") + ".db"
	target := filepath.Join(dir, name)
	if _, err := os.Stat(target); err == nil {
		return "", fmt.Errorf("backup %s already exists", target)
	}

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, target); err != nil {
		return "", fmt.Errorf("vacuum into %s: %w", target, err)
	}
	if keep > 0 {
		if _, err := RotateBackups(dir, keep); err != nil {
			return target, err
		}
	}
	return target, nil
}

// RotateBackups оставляет в dir не более keep самых свежих копий
// и возвращает список удаленных файлов.
func RotateBackups(dir string, keep int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	type backupFile struct {
		path    string
		modUnix int64
	}
	var files []backupFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) || !strings.HasSuffix(e.Name(), ".db") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, backupFile{path: filepath.Join(dir, e.Name()), modUnix: info.ModTime().UnixNano()})
	}
	if keep < 0 {
		keep = 0
	}
	if len(files) <= keep {
		return nil, nil
	}

	// Новые первыми; при равном mtime решает имя, в нем зашита метка времени.
	sort.Slice(files, func(i, j int) bool {
		if files[i].modUnix != files[j].modUnix {
			return files[i].modUnix > files[j].modUnix
		}
		return files[i].path > files[j].path
	})

	var removed []string
	for _, f := range files[keep:] {
		if err := os.Remove(f.path); err != nil {
			return removed, fmt.Errorf("remove old backup %s: %w", f.path, err)
		}
		removed = append(removed, f.path)
	}
	return removed, nil
}
