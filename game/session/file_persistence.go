package session

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/wricardo/overland/game/service"
)

const (
	jsonSuffix       = ".json"
	compressedSuffix = ".json.zst"
)

// FilePersistence implements SessionPersistence using file system storage.
// Sessions are stored as id.json, or as zstd compressed id.json.zst.
type FilePersistence struct {
	sessionsDir   string
	configManager service.ConfigManager
	compress      bool
}

// NewFilePersistence creates a new file-based session persistence layer writing plain JSON
func NewFilePersistence(sessionsDir string, configManager service.ConfigManager) (*FilePersistence, error) {
	return newFilePersistence(sessionsDir, configManager, false)
}

// NewCompressedFilePersistence creates a file-based persistence layer writing zstd compressed JSON
func NewCompressedFilePersistence(sessionsDir string, configManager service.ConfigManager) (*FilePersistence, error) {
	return newFilePersistence(sessionsDir, configManager, true)
}

func newFilePersistence(sessionsDir string, configManager service.ConfigManager, compress bool) (*FilePersistence, error) {
	// Create sessions directory if it doesn't exist
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &FilePersistence{
		sessionsDir:   sessionsDir,
		configManager: configManager,
		compress:      compress,
	}, nil
}

// Save persists a session to a file
func (fp *FilePersistence) Save(session *service.Session) error {
	jsonData, err := encodeSession(session)
	if err != nil {
		return err
	}

	if err := fp.writeFile(fp.getFilePath(session.ID), jsonData); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load retrieves a session from a file
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	filePath := fp.getFilePath(id)

	// Check if file exists
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, ErrSessionNotFound
	}

	jsonData, err := fp.readFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	return decodeSession(jsonData, fp.configManager)
}

// Delete removes a session file
func (fp *FilePersistence) Delete(id string) error {
	if !fp.Exists(id) {
		return ErrSessionNotFound
	}

	if err := os.Remove(fp.getFilePath(id)); err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// ListAll returns all persisted session IDs
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	suffix := fp.suffix()
	var sessionIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, suffix) {
			sessionIDs = append(sessionIDs, strings.TrimSuffix(name, suffix))
		}
	}

	return sessionIDs, nil
}

// Exists checks if a session file exists
func (fp *FilePersistence) Exists(id string) bool {
	_, err := os.Stat(fp.getFilePath(id))
	return err == nil
}

func (fp *FilePersistence) suffix() string {
	if fp.compress {
		return compressedSuffix
	}
	return jsonSuffix
}

// getFilePath returns the full file path for a session ID
func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.sessionsDir, id+fp.suffix())
}

func (fp *FilePersistence) writeFile(path string, data []byte) error {
	if !fp.compress {
		return os.WriteFile(path, data, 0644)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func (fp *FilePersistence) readFile(path string) ([]byte, error) {
	if !fp.compress {
		return os.ReadFile(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return data, nil
}
