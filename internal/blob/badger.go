package blob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/dgraph-io/badger/v2/options"
)

const (
	badgerDiscardRatio     = 0.5 // run gc when half of the samples can be collected
	badgerGcInterval       = 10 * time.Minute
	badgerGcSize           = 1 << 20
	badgerValueLogFileSize = 1<<26 - 1
)

// Badger persists values in a badger directory and runs value log GC in the
// background until Close.
type Badger struct {
	db         *badger.DB
	ctx        context.Context
	cancelFunc context.CancelFunc
	done       chan struct{}
	dir        string
}

var _ Store = (*Badger)(nil)

func NewBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	opts.ValueLogLoadingMode = options.FileIO
	opts.TableLoadingMode = options.FileIO
	opts.ValueThreshold = 1024
	opts.ValueLogFileSize = badgerValueLogFileSize
	opts.Logger = badgerLogger{}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Badger{
		db:         db,
		ctx:        ctx,
		cancelFunc: cancel,
		done:       make(chan struct{}),
		dir:        dir,
	}
	go b.runGC()
	return b, nil
}

func (b *Badger) Type() string {
	return "badger"
}

func (b *Badger) runGC() {
	defer close(b.done)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	lastGc := time.Now()
	_, lastVlogSize := b.db.Size()
	for {
		select {
		case <-ticker.C:
			lsmSize, vlogSize := b.db.Size()
			if time.Since(lastGc) <= badgerGcInterval && lastVlogSize+badgerGcSize <= vlogSize {
				continue
			}
			logger.Debug().Str("dir", b.dir).Int64("lsmSize", lsmSize).Int64("vlogSize", vlogSize).Msg("start badger gc")
			err := b.db.RunValueLogGC(badgerDiscardRatio)
			switch {
			case errors.Is(err, badger.ErrNoRewrite):
				lastVlogSize = vlogSize
			case err != nil:
				logger.Error().Str("dir", b.dir).Err(err).Msg("badger gc failed")
				lastVlogSize = vlogSize
			default:
				_, lastVlogSize = b.db.Size()
			}
			lastGc = time.Now()
		case <-b.ctx.Done():
			return
		}
	}
}

func (b *Badger) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (b *Badger) Set(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (b *Badger) Delete(_ context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Close stops the GC loop and closes the database.
func (b *Badger) Close() error {
	b.cancelFunc()
	<-b.done
	return b.db.Close()
}

// badgerLogger routes badger's own logging into the blob module logger.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logger.Error().Msgf(format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logger.Warn().Msgf(format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logger.Debug().Msgf(format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logger.Debug().Msgf(format, args...)
}
