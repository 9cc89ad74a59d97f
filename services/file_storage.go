package services

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tax-document-platform/internal/config"
	"tax-document-platform/internal/logger"

	"github.com/google/uuid"
)

// FileStorage keeps the original upload bytes on disk so re-extraction
// can reload them later.
type FileStorage struct {
	uploadDir string
	tempDir   string
}

// StoredFile describes a persisted upload.
type StoredFile struct {
	Path       string
	SecureName string
	Hash       string
	Size       int64
}

func NewFileStorage(cfg *config.Config) *FileStorage {
	baseDir := cfg.FileStorageDir
	if baseDir == "" {
		baseDir = "./storage"
	}

	uploadDir := filepath.Join(baseDir, "documents")
	tempDir := filepath.Join(baseDir, "temp")

	os.MkdirAll(uploadDir, 0755)
	os.MkdirAll(tempDir, 0755)

	return &FileStorage{
		uploadDir: uploadDir,
		tempDir:   tempDir,
	}
}

// Store writes the bytes atomically (temp file + rename) and returns the
// final path plus an MD5 content hash for deduplication.
func (fs *FileStorage) Store(data []byte, originalName string) (*StoredFile, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	secureName := fs.generateSecureFilename(originalName)
	tempPath := filepath.Join(fs.tempDir, uuid.NewString()+".tmp")

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	finalPath := filepath.Join(fs.uploadDir, secureName)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to move file to final location: %w", err)
	}

	hash := md5.Sum(data)

	return &StoredFile{
		Path:       finalPath,
		SecureName: secureName,
		Hash:       hex.EncodeToString(hash[:]),
		Size:       int64(len(data)),
	}, nil
}

// Stage writes the bytes to the temp area for deferred processing and
// returns the staged path. The consumer is responsible for Cleanup.
func (fs *FileStorage) Stage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("file is empty")
	}
	stagedPath := filepath.Join(fs.tempDir, uuid.NewString()+".staged")
	if err := os.WriteFile(stagedPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to stage file: %w", err)
	}
	return stagedPath, nil
}

// Read loads the stored bytes back for re-extraction.
func (fs *FileStorage) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored file: %w", err)
	}
	return data, nil
}

// Cleanup removes a file from storage.
func (fs *FileStorage) Cleanup(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to cleanup stored file", "path", path, "error", err)
	}
}

// generateSecureFilename avoids collisions and path tricks in stored
// names while keeping a recognizable stem.
func (fs *FileStorage) generateSecureFilename(originalName string) string {
	randomBytes := make([]byte, 8)
	rand.Read(randomBytes)
	randomPrefix := hex.EncodeToString(randomBytes)

	timestamp := time.Now().Format("20060102_150405")

	ext := filepath.Ext(originalName)
	baseName := strings.TrimSuffix(filepath.Base(originalName), ext)
	safeName := strings.ReplaceAll(baseName, " ", "_")
	safeName = strings.ReplaceAll(safeName, "..", "")
	if len(safeName) > 50 {
		safeName = safeName[:50]
	}

	return fmt.Sprintf("%s_%s_%s%s", timestamp, randomPrefix, safeName, ext)
}
