package api

import (
	"sync"
	"time"

	"github.com/9seconds/geotally/tallylib"
)

// Snapshot is a result of a single pipeline run.
type Snapshot struct {
	Table     tallylib.FrequencyTable
	Rows      []tallylib.ChoroplethRow
	Addresses int
	UpdatedAt time.Time
}

// State holds the latest published snapshot. Pipeline reruns replace
// it as a whole.
type State struct {
	mutex    sync.RWMutex
	snapshot *Snapshot
}

func (s *State) Publish(snapshot Snapshot) {
	if snapshot.UpdatedAt.IsZero() {
		snapshot.UpdatedAt = time.Now()
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.snapshot = &snapshot
}

// Get returns the latest snapshot. The flag is false if nothing was
// published yet.
func (s *State) Get() (Snapshot, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.snapshot == nil {
		return Snapshot{}, false
	}

	return *s.snapshot, true
}
