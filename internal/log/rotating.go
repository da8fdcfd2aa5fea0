package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const rotatedDateLayout = "2006-01-02"

// RotatingFile - io.Writer, который раз в сутки переименовывает файл
// в app.log.YYYY-MM-DD и хранит не больше keep старых файлов.
type RotatingFile struct {
	mu      sync.Mutex
	path    string
	keep    int
	now     func() time.Time
	file    *os.File
	openDay string
}

// NewRotatingFile открывает (или создает) файл лога вместе с каталогом.
func NewRotatingFile(path string, keep int) (*RotatingFile, error) {
	return newRotatingFile(path, keep, time.Now)
}

func newRotatingFile(path string, keep int, now func() time.Time) (*RotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	rf := &RotatingFile{path: path, keep: keep, now: now}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *RotatingFile) open() error {
	f, err := os.OpenFile(rf.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	day := rf.now().Format(rotatedDateLayout)
	// Файл, оставшийся с прошлого запуска, относится к дню своей модификации.
	if st, err := f.Stat(); err == nil && st.Size() > 0 {
		day = st.ModTime().Format(rotatedDateLayout)
	}
	rf.file = f
	rf.openDay = day
	return nil
}

// Write пишет запись, предварительно ротируя файл при смене даты.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return 0, os.ErrClosed
	}
	if today := rf.now().Format(rotatedDateLayout); today != rf.openDay {
		if err := rf.rotate(); err != nil {
			return 0, err
		}
		rf.openDay = today
	}
	return rf.file.Write(p)
}

func (rf *RotatingFile) rotate() error {
	if err := rf.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	rotated := rf.path + "." + rf.openDay
	if err := os.Rename(rf.path, rotated); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	f, err := os.OpenFile(rf.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	rf.file = f
	rf.prune()
	return nil
}

// prune удаляет самые старые ротированные файлы сверх лимита.
func (rf *RotatingFile) prune() {
	if rf.keep <= 0 {
		return
	}
	matches, err := filepath.Glob(rf.path + ".*")
	if err != nil {
		return
	}
	var rotated []string
	for _, m := range matches {
		suffix := strings.TrimPrefix(m, rf.path+".")
		if _, err := time.Parse(rotatedDateLayout, suffix); err == nil {
			rotated = append(rotated, m)
		}
	}
	// Имена с датой ISO сортируются хронологически.
	sort.Sort(sort.Reverse(sort.StringSlice(rotated)))
	for _, old := range rotated[min(rf.keep, len(rotated)):] {
		_ = os.Remove(old)
	}
}

// Close закрывает текущий файл.
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}
