package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/aimsports/aim-backend/internal/lib/logger/sl"
)

var ErrSourceNotFound = errors.New("source not found")

// Source keeps uploaded video files in a local directory.
// Storage url of a file is its name inside the directory.
type Source struct {
	log *slog.Logger
	dir string
}

func New(
	log *slog.Logger,
	dir string,
) *Source {
	return &Source{
		log: log,
		dir: dir,
	}
}

// UploadSource copies file at path into the directory
// under a fresh name and returns its storage url.
func (s *Source) UploadSource(ctx context.Context, path string, ext string) (string, error) {
	const op = "Source.UploadSource"

	log := s.log.With(
		slog.String("op", op),
	)

	log.Info("uploading source")

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		log.Error("failed to create media dir", slog.String("dir", s.dir), sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	source, err := os.Open(path)
	if err != nil {
		log.Error("failed to open input file", slog.String("file", path), sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer source.Close()

	name := uuid.NewString() + strings.ToLower(ext)
	fileName := filepath.Join(s.dir, name)

	destination, err := os.Create(fileName)
	if err != nil {
		log.Error("failed to create file", slog.String("file", fileName), sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer destination.Close()

	if _, err = io.Copy(destination, source); err != nil {
		log.Error("failed to copy file", sl.Err(err))
		os.Remove(fileName)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("uploaded source", slog.String("url", name))

	return name, nil
}

// SourcePath returns local path of the file.
func (s *Source) SourcePath(storageURL string) (string, error) {
	const op = "Source.SourcePath"

	if storageURL == "" || filepath.Base(storageURL) != storageURL {
		return "", fmt.Errorf("%s: %w", op, ErrSourceNotFound)
	}

	path := filepath.Join(s.dir, storageURL)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", op, ErrSourceNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return path, nil
}

// SourceSize returns file size in bytes.
func (s *Source) SourceSize(storageURL string) (int64, error) {
	const op = "Source.SourceSize"

	path, err := s.SourcePath(storageURL)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return info.Size(), nil
}

// DeleteSource deletes file. Missing file is not an error.
func (s *Source) DeleteSource(ctx context.Context, storageURL string) error {
	const op = "Source.DeleteSource"

	log := s.log.With(
		slog.String("op", op),
		slog.String("url", storageURL),
	)

	path, err := s.SourcePath(storageURL)
	if err != nil {
		if errors.Is(err, ErrSourceNotFound) {
			log.Warn("source does not exist")
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("deleting source")

	if err := os.Remove(path); err != nil {
		log.Error("failed to delete source file", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("deleted source")

	return nil
}
