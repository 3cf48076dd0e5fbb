// Package file persists the shopping-list document and the action log as
// two independent JSON snapshot files, each rewritten in full on every
// change. Reads fail soft: a missing or corrupt file degrades to the empty
// default structure instead of failing the request.
package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"shoplist-backend/domain/history"
	"shoplist-backend/domain/list"
	appErrors "shoplist-backend/pkg/errors"
	"shoplist-backend/pkg/observability"
)

const (
	listFileName    = "shoppingListData.json"
	historyFileName = "actionHistory.json"
)

// Store reads and writes the two snapshot files under a data directory.
type Store struct {
	listPath    string
	historyPath string
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewStore creates a snapshot store rooted at dataDir. metrics may be nil.
func NewStore(dataDir string, metrics *observability.Metrics, logger *zap.Logger) *Store {
	return &Store{
		listPath:    filepath.Join(dataDir, listFileName),
		historyPath: filepath.Join(dataDir, historyFileName),
		metrics:     metrics,
		logger:      logger,
	}
}

// EnsureDataFiles creates the data directory and both snapshot files with
// default contents when absent.
func (s *Store) EnsureDataFiles() error {
	if err := os.MkdirAll(filepath.Dir(s.listPath), 0o755); err != nil {
		return appErrors.NewInternal("failed to create data directory", err)
	}
	if _, err := os.Stat(s.listPath); os.IsNotExist(err) {
		if err := s.writeSnapshot(s.listPath, list.NewDocument()); err != nil {
			return err
		}
		s.logger.Info("created list snapshot", zap.String("path", s.listPath))
	}
	if _, err := os.Stat(s.historyPath); os.IsNotExist(err) {
		if err := s.writeSnapshot(s.historyPath, history.NewLog()); err != nil {
			return err
		}
		s.logger.Info("created history snapshot", zap.String("path", s.historyPath))
	}
	return nil
}

// LoadList returns the persisted document. On read or parse failure it
// degrades to the empty default document, since a missing list must not
// crash the service.
func (s *Store) LoadList(ctx context.Context) (*list.Document, error) {
	data, err := os.ReadFile(s.listPath)
	if err != nil {
		s.logger.Warn("failed to read list snapshot, using default",
			zap.String("path", s.listPath), zap.Error(err))
		return list.NewDocument(), nil
	}
	var doc list.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("failed to parse list snapshot, using default",
			zap.String("path", s.listPath), zap.Error(err))
		return list.NewDocument(), nil
	}
	doc.Normalize()
	return &doc, nil
}

// LoadHistory returns the persisted action log, degrading to an empty log
// on read or parse failure.
func (s *Store) LoadHistory(ctx context.Context) (history.Log, error) {
	data, err := os.ReadFile(s.historyPath)
	if err != nil {
		s.logger.Warn("failed to read history snapshot, using empty log",
			zap.String("path", s.historyPath), zap.Error(err))
		return history.NewLog(), nil
	}
	var log history.Log
	if err := json.Unmarshal(data, &log); err != nil {
		s.logger.Warn("failed to parse history snapshot, using empty log",
			zap.String("path", s.historyPath), zap.Error(err))
		return history.NewLog(), nil
	}
	if log == nil {
		log = history.NewLog()
	}
	return log, nil
}

// SaveList overwrites the document snapshot.
func (s *Store) SaveList(ctx context.Context, doc *list.Document) error {
	err := s.writeSnapshot(s.listPath, doc)
	s.observeWrite("list", err)
	return err
}

// SaveHistory overwrites the action log snapshot.
func (s *Store) SaveHistory(ctx context.Context, log history.Log) error {
	if log == nil {
		log = history.NewLog()
	}
	err := s.writeSnapshot(s.historyPath, log)
	s.observeWrite("history", err)
	return err
}

// writeSnapshot writes via a temp file and rename so the next load always
// sees either the old or the new snapshot, never a partial write.
func (s *Store) writeSnapshot(path string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return appErrors.NewInternal("failed to encode snapshot", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return appErrors.NewInternal("failed to create temp snapshot", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return appErrors.NewInternal("failed to write snapshot", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return appErrors.NewInternal("failed to close snapshot", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return appErrors.NewInternal("failed to replace snapshot", err)
	}
	return nil
}

func (s *Store) observeWrite(kind string, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.SnapshotWrites.WithLabelValues(kind, status).Inc()
}
