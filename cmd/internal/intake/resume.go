package intake

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ResumeStore writes résumés under a single directory.
type ResumeStore struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

// NewResumeStore returns a store rooted at dir. The directory is created on first save.
func NewResumeStore(dir string, maxBytes int64) *ResumeStore {
	if strings.TrimSpace(dir) == "" {
		dir = "uploads"
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResumeBytes
	}
	return &ResumeStore{dir: dir, maxBytes: maxBytes, now: time.Now}
}

// Save copies r into a new file named "<unix-millis>-<token><ext>" and returns
// its path. The original filename contributes only its extension.
func (s *ResumeStore) Save(originalName string, r io.Reader) (path string, written int64, err error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", 0, fmt.Errorf("intake: create upload dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(originalName))

	var f *os.File
	for attempt := 0; attempt < 3; attempt++ {
		name, nerr := s.fileName(ext)
		if nerr != nil {
			return "", 0, nerr
		}
		path = filepath.Join(s.dir, name)
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return "", 0, fmt.Errorf("intake: create resume file: %w", err)
		}
	}
	if err != nil {
		return "", 0, fmt.Errorf("intake: create resume file: %w", err)
	}

	written, err = io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	cerr := f.Close()
	switch {
	case err != nil:
		err = fmt.Errorf("intake: write resume: %w", err)
	case cerr != nil:
		err = fmt.Errorf("intake: close resume: %w", cerr)
	case written > s.maxBytes:
		err = ErrFileTooLarge
	case written == 0:
		err = ErrEmptyFile
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, err
	}
	return filepath.ToSlash(path), written, nil
}

// Remove deletes a previously saved résumé. Missing files are not an error.
func (s *ResumeStore) Remove(path string) error {
	err := os.Remove(filepath.FromSlash(path))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *ResumeStore) fileName(ext string) (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("intake: random name: %w", err)
	}
	token := strconv.FormatUint(binary.BigEndian.Uint64(b[:]), 36)
	return strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + token + ext, nil
}
