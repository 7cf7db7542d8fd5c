package storage

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultIncomingMaxAge = time.Hour
	defaultSweepInterval  = 15 * time.Minute
)

// Sweeper periodically removes uploads that were written to the incoming
// directory but never validated or moved, e.g. after a crash mid-request.
type Sweeper struct {
	storage  *LocalStorage
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

func NewSweeper(storage *LocalStorage, config Config) *Sweeper {
	maxAge := config.IncomingMaxAge
	if maxAge <= 0 {
		maxAge = defaultIncomingMaxAge
	}
	interval := config.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	return &Sweeper{
		storage:  storage,
		maxAge:   maxAge,
		interval: interval,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	s.ticker = time.NewTicker(s.interval)
	log.Info().
		Dur("interval", s.interval).
		Dur("maxAge", s.maxAge).
		Msg("Incoming sweeper started")

	go s.loop(s.ticker)
}

func (s *Sweeper) loop(ticker *time.Ticker) {
	for {
		select {
		case <-ticker.C:
			s.RunNow()
		case <-s.done:
			ticker.Stop()
			return
		}
	}
}

// RunNow sweeps once and returns how many files were removed.
func (s *Sweeper) RunNow() int {
	dir := s.storage.Layout().IncomingDirectory()
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("Failed to read incoming directory")
		return 0
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := s.storage.Delete(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to remove stale upload")
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Removed stale uploads")
	}
	return removed
}

func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		log.Info().Msg("Stopping incoming sweeper")
		close(s.done)
	})
}
