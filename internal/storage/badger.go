package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/RubioRobin/qr-ifc-viewer/internal/core/domain"
	"github.com/RubioRobin/qr-ifc-viewer/internal/telemetry/metric"
)

// Key prefixes. The slug and version-key rows are secondary indexes
// holding the primary row's ID.
const (
	keyProjectByID   = "prj:id:"
	keyProjectBySlug = "prj:slug:"
	keyVersionByID   = "ver:id:"
	keyVersionByName = "ver:key:"
	keyToken         = "tok:"
)

const (
	gcInterval  = 10 * time.Minute
	gcThreshold = 0.5

	// sweepBatchSize bounds deletes per transaction so a large sweep
	// never trips Badger's transaction size limit.
	sweepBatchSize = 1000
)

// versionNameKey builds the (project, label) index key. NUL never
// appears in IDs or labels.
func versionNameKey(projectID, version string) []byte {
	return []byte(keyVersionByName + projectID + "\x00" + version)
}

// badgerStore is the durable backend. Writes run with SyncWrites so an
// acknowledged mutation survives process crash; a single writer mutex
// serializes mutations instead of relying on transaction conflict
// retries.
type badgerStore struct {
	db      *badger.DB
	logger  *slog.Logger
	writeMu sync.Mutex

	// verSeq assigns insertion sequence numbers to model versions.
	verSeq atomic.Uint64

	lsmSize  prometheus.Gauge
	vlogSize prometheus.Gauge

	stopCh chan struct{}
	doneCh chan struct{}
}

func openBadger(cfg Config) (*badgerStore, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.DataDir)
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	s := &badgerStore{
		db:     db,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	if err := s.initVersionSeq(); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.Metrics != nil {
		s.registerMetrics(cfg.Metrics)
	}
	go s.gcLoop()

	logger.Info("badger store opened", "dir", cfg.DataDir)
	return s, nil
}

// initVersionSeq restores the sequence counter from the highest stored
// version sequence.
func (s *badgerStore) initVersionSeq() error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(keyVersionByID), PrefetchValues: true})
		defer it.Close()

		var max uint64
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var v domain.ModelVersion
				if err := json.Unmarshal(val, &v); err != nil {
					return fmt.Errorf("badger: decode version: %w", err)
				}
				if v.Seq > max {
					max = v.Seq
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		s.verSeq.Store(max)
		return nil
	})
}

func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// CreateProject creates a project and its slug index row in one
// transaction.
func (s *badgerStore) CreateProject(ctx context.Context, slug, name string) (string, error) {
	p, err := domain.NewProject(slug, name)
	if err != nil {
		return "", err
	}
	if err := p.Validate(); err != nil {
		return "", err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err = s.db.Update(func(txn *badger.Txn) error {
		slugKey := []byte(keyProjectBySlug + slug)
		if _, err := txn.Get(slugKey); err == nil {
			return domain.ErrProjectConflict.WithDetails(fmt.Sprintf("slug '%s' already exists", slug))
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := setJSON(txn, []byte(keyProjectByID+p.ID), p); err != nil {
			return err
		}
		return txn.Set(slugKey, []byte(p.ID))
	})
	if err != nil {
		return "", wrapStorageErr(err)
	}
	return p.ID, nil
}

func (s *badgerStore) GetProjectBySlug(ctx context.Context, slug string) (*domain.Project, error) {
	var p domain.Project
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyProjectBySlug + slug))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, []byte(keyProjectByID+string(id)), &p)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.ErrProjectNotFound.WithDetails(fmt.Sprintf("slug '%s'", slug))
		}
		return nil, wrapStorageErr(err)
	}
	return &p, nil
}

func (s *badgerStore) CreateModelVersion(ctx context.Context, projectID, version, ifcFileURL string) (string, error) {
	v, err := domain.NewModelVersion(projectID, version, ifcFileURL)
	if err != nil {
		return "", err
	}
	if err := v.Validate(); err != nil {
		return "", err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	v.Seq = s.verSeq.Add(1)

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(keyProjectByID + projectID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrProjectNotFound.WithDetails(fmt.Sprintf("id '%s'", projectID))
			}
			return err
		}

		nameKey := versionNameKey(projectID, version)
		if _, err := txn.Get(nameKey); err == nil {
			return domain.ErrVersionConflict.WithDetails(
				fmt.Sprintf("version '%s' already exists for project '%s'", version, projectID))
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := setJSON(txn, []byte(keyVersionByID+v.ID), v); err != nil {
			return err
		}
		return txn.Set(nameKey, []byte(v.ID))
	})
	if err != nil {
		return "", wrapStorageErr(err)
	}
	return v.ID, nil
}

func (s *badgerStore) GetModelVersion(ctx context.Context, projectID, version string) (*domain.ModelVersion, error) {
	var v domain.ModelVersion
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(versionNameKey(projectID, version))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, []byte(keyVersionByID+string(id)), &v)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.ErrVersionNotFound.WithDetails(
				fmt.Sprintf("version '%s' for project '%s'", version, projectID))
		}
		return nil, wrapStorageErr(err)
	}
	return &v, nil
}

// GetLatestModelVersion scans the project's version index and picks the
// newest row, insertion order breaking timestamp ties.
func (s *badgerStore) GetLatestModelVersion(ctx context.Context, projectID string) (*domain.ModelVersion, error) {
	var latest *domain.ModelVersion

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(keyVersionByName + projectID + "\x00")
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var v domain.ModelVersion
			if err := getJSON(txn, []byte(keyVersionByID+string(id)), &v); err != nil {
				return err
			}
			if latest == nil || v.Newer(latest) {
				latest = &v
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	if latest == nil {
		return nil, domain.ErrVersionNotFound.WithDetails(
			fmt.Sprintf("project '%s' has no versions", projectID))
	}
	return latest, nil
}

func (s *badgerStore) CreateToken(ctx context.Context, t *domain.ViewerToken) error {
	if err := t.Validate(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(keyToken + t.Token)
		if _, err := txn.Get(key); err == nil {
			return domain.ErrTokenConflict
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if _, err := txn.Get([]byte(keyProjectByID + t.ProjectID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrProjectNotFound.WithDetails(fmt.Sprintf("id '%s'", t.ProjectID))
			}
			return err
		}
		if _, err := txn.Get([]byte(keyVersionByID + t.ModelVersionID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrVersionNotFound.WithDetails(fmt.Sprintf("id '%s'", t.ModelVersionID))
			}
			return err
		}

		return setJSON(txn, key, t)
	})
	return wrapStorageErr(err)
}

// GetTokenData joins the token with its parents inside one read
// transaction, so the caller sees either the complete record or a
// not-found.
func (s *badgerStore) GetTokenData(ctx context.Context, tok string) (*domain.TokenData, error) {
	var data *domain.TokenData

	err := s.db.View(func(txn *badger.Txn) error {
		var t domain.ViewerToken
		if err := getJSON(txn, []byte(keyToken+tok), &t); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrTokenNotFound
			}
			return err
		}

		var p domain.Project
		if err := getJSON(txn, []byte(keyProjectByID+t.ProjectID), &p); err != nil {
			return fmt.Errorf("badger: token references missing project '%s': %w", t.ProjectID, err)
		}
		var v domain.ModelVersion
		if err := getJSON(txn, []byte(keyVersionByID+t.ModelVersionID), &v); err != nil {
			return fmt.Errorf("badger: token references missing version '%s': %w", t.ModelVersionID, err)
		}

		data = &domain.TokenData{
			Token:       t.Token,
			ProjectSlug: p.Slug,
			ProjectName: p.Name,
			Version:     v.Version,
			IFCFileURL:  v.IFCFileURL,
			IFCGlobalID: t.IFCGlobalID,
			ExpiresAt:   t.ExpiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	return data, nil
}

// DeleteExpiredTokens collects expired token keys in a read pass, then
// deletes them in bounded batches.
func (s *badgerStore) DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.UnixMilli()

	var expired [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(keyToken), PrefetchValues: true})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var t domain.ViewerToken
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			})
			if err != nil {
				return err
			}
			if t.ExpiresAt < cutoff {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, wrapStorageErr(err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	deleted := 0
	for start := 0; start < len(expired); start += sweepBatchSize {
		end := start + sweepBatchSize
		if end > len(expired) {
			end = len(expired)
		}
		batch := expired[start:end]

		err := s.db.Update(func(txn *badger.Txn) error {
			for _, key := range batch {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return deleted, wrapStorageErr(err)
		}
		deleted += len(batch)
	}
	return deleted, nil
}

func (s *badgerStore) Close() error {
	close(s.stopCh)
	<-s.doneCh

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("badger: close: %w", err)
	}
	s.logger.Info("badger store closed")
	return nil
}

func (s *badgerStore) registerMetrics(reg *metric.Registry) {
	s.lsmSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qrifc_badger_lsm_size_bytes",
		Help: "Badger LSM tree size in bytes.",
	})
	s.vlogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "qrifc_badger_value_log_size_bytes",
		Help: "Badger value log size in bytes.",
	})
	reg.MustRegister(s.lsmSize, s.vlogSize)
}

// gcLoop periodically reclaims value log space and refreshes size
// gauges.
func (s *badgerStore) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	sizeTicker := time.NewTicker(15 * time.Second)
	defer sizeTicker.Stop()

	for {
		select {
		case <-ticker.C:
			for {
				if err := s.db.RunValueLogGC(gcThreshold); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						s.logger.Error("badger gc failed", "error", err)
					}
					break
				}
			}
		case <-sizeTicker.C:
			if s.lsmSize != nil {
				lsm, vlog := s.db.Size()
				s.lsmSize.Set(float64(lsm))
				s.vlogSize.Set(float64(vlog))
			}
		case <-s.stopCh:
			return
		}
	}
}

// wrapStorageErr passes domain errors through and tags anything else
// as a storage failure.
func wrapStorageErr(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsDomainError(err, "") {
		return err
	}
	return domain.ErrStorageError.WithCause(err)
}

// badgerLogger adapts slog to Badger's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
