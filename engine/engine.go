// Package engine persists master side records in pebble.
package engine

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/pkg/errors"

	"booking/logging"
)

const maxRetries = 5

var logger = logging.GetLogger("engine")

type Engine struct {
	Db   *pebble.DB
	Path string
}

// NewEngine opens the database at basePath. When another process holds
// the lock it falls back to basePath_1, basePath_2 and so on.
func NewEngine(basePath string) (*Engine, error) {
	for i := 0; i <= maxRetries; i++ {
		dbPath := basePath
		if i > 0 {
			dbPath = fmt.Sprintf("%s_%d", basePath, i)
		}

		db, err := pebble.Open(dbPath, &pebble.Options{})
		if err == nil {
			logger.Infof("Using Pebble DB at path: %s", dbPath)
			return &Engine{Db: db, Path: dbPath}, nil
		}

		if isLockErr(err) {
			logger.Warnf("DB at %s is locked, trying next...", dbPath)
			continue
		}

		return nil, errors.Wrapf(err, "open pebble db at %s", dbPath)
	}
	return nil, errors.Errorf("all fallback pebble paths for %s are locked", basePath)
}

// NewMemEngine opens an in-memory database.
func NewMemEngine() (*Engine, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, errors.Wrap(err, "open in-memory pebble db")
	}
	return &Engine{Db: db}, nil
}

func isLockErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "lock") ||
		strings.Contains(msg, "resource temporarily unavailable") ||
		strings.Contains(msg, "used by another process") ||
		strings.Contains(msg, "cannot access the file")
}

func (e *Engine) Close() error {
	if e.Db == nil {
		return nil
	}
	err := e.Db.Close()
	e.Db = nil
	return err
}
