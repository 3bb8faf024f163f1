package backup

import (
	"sync"
	"sync/atomic"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/logger"
)

// Snapshotter takes a backup once every N store writes on its own goroutine.
// Notify never blocks; triggers that arrive while a snapshot is running
// collapse into one.
type Snapshotter struct {
	mgr     *Manager
	every   int64
	writes  atomic.Int64
	taken   atomic.Int64
	trigger chan struct{}
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewSnapshotter starts the snapshot goroutine. A non-positive every selects
// constants.DefaultBackupInterval.
func NewSnapshotter(mgr *Manager, every int) *Snapshotter {
	if every <= 0 {
		every = constants.DefaultBackupInterval
	}
	s := &Snapshotter{
		mgr:     mgr,
		every:   int64(every),
		trigger: make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Notify records one write.
func (s *Snapshotter) Notify() {
	if s.writes.Add(1)%s.every != 0 {
		return
	}
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Taken returns how many snapshots completed.
func (s *Snapshotter) Taken() int64 { return s.taken.Load() }

// Close stops the goroutine after any pending snapshot finishes.
func (s *Snapshotter) Close() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Snapshotter) run() {
	defer close(s.done)
	for {
		select {
		case <-s.trigger:
			s.take()
		case <-s.stop:
			select {
			case <-s.trigger:
				s.take()
			default:
			}
			return
		}
	}
}

func (s *Snapshotter) take() {
	path, err := s.mgr.CreateBackup()
	if err != nil {
		logger.Error("Scheduled backup failed", "error", err)
		return
	}
	s.taken.Add(1)
	logger.Debug("Scheduled backup taken", "path", path, "writes", s.writes.Load())
}
