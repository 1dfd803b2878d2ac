package badger

import (
	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

// storeLogger routes badger's internal logging through the snapshot
// store's zap logger under a named sub-scope.
type storeLogger struct {
	sugar *zap.SugaredLogger
}

var _ badgerdb.Logger = (*storeLogger)(nil)

func newStoreLogger(logger *zap.Logger) *storeLogger {
	return &storeLogger{sugar: logger.Named("badger").Sugar()}
}

func (s *storeLogger) Errorf(format string, args ...interface{}) {
	s.sugar.Errorf(format, args...)
}

// Warningf bridges badger's naming to zap's Warnf.
func (s *storeLogger) Warningf(format string, args ...interface{}) {
	s.sugar.Warnf(format, args...)
}

func (s *storeLogger) Infof(format string, args ...interface{}) {
	s.sugar.Infof(format, args...)
}

func (s *storeLogger) Debugf(format string, args ...interface{}) {
	s.sugar.Debugf(format, args...)
}
