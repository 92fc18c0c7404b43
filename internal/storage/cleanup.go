package storage

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler removes uploads left behind by failed or abandoned analyses
type Scheduler struct {
	dir      string
	interval time.Duration
	maxAge   time.Duration
	logger   zerolog.Logger
	stopChan chan struct{}
	now      func() time.Time
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(dir string, interval, maxAge time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		dir:      dir,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger.With().Str("component", "upload_cleanup").Logger(),
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start runs one sweep immediately, then one per interval
func (s *Scheduler) Start() {
	s.CleanOldFiles()

	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.CleanOldFiles()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	s.logger.Info().
		Dur("interval", s.interval).
		Dur("max_age", s.maxAge).
		Msg("Upload cleanup scheduler started")
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.logger.Info().Msg("Upload cleanup scheduler stopped")
}

// CleanOldFiles deletes regular files older than maxAge and returns how many were removed
func (s *Scheduler) CleanOldFiles() int {
	now := s.now()
	var deleted int
	var freed int64

	err := filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if now.Sub(info.ModTime()) <= s.maxAge {
			return nil
		}
		if err := os.Remove(path); err != nil {
			s.logger.Warn().Err(err).Str("file", filepath.Base(path)).Msg("Failed to delete old upload")
			return nil
		}
		deleted++
		freed += info.Size()
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Upload cleanup walk failed")
	}

	if deleted > 0 {
		s.logger.Info().
			Int("files", deleted).
			Int64("bytes_freed", freed).
			Msg("Upload cleanup complete")
	}
	return deleted
}
