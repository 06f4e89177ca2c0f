package sim

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-rig/internal/locomotor"
)

// Record is one captured locomotor state.
type Record struct {
	Frame     int                 `yaml:"frame"`
	Character int                 `yaml:"character"`
	Snapshot  *locomotor.Snapshot `yaml:"snapshot"`
}

// Recorder keeps locomotor snapshots every Every frames. Every <= 0
// records nothing.
type Recorder struct {
	Every int

	mu      sync.Mutex
	records []Record
}

// NewRecorder returns a recorder sampling every n frames.
func NewRecorder(n int) *Recorder {
	return &Recorder{Every: n}
}

// Capture snapshots every character when frame is due.
func (r *Recorder) Capture(frame int, characters []*Character) error {
	if r.Every <= 0 || frame%r.Every != 0 {
		return nil
	}
	batch := make([]Record, 0, len(characters))
	for _, c := range characters {
		loco := c.Locomotion.Locomotor()
		if loco == nil {
			continue
		}
		snap, err := loco.Snapshot()
		if err != nil {
			return fmt.Errorf("frame %d character %d: %w", frame, c.ID, err)
		}
		batch = append(batch, Record{Frame: frame, Character: c.ID, Snapshot: snap})
	}

	r.mu.Lock()
	r.records = append(r.records, batch...)
	r.mu.Unlock()
	return nil
}

// Records returns the captured records in capture order.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

// Len returns the number of captured records.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Save writes the records to path as YAML.
func (r *Recorder) Save(path string) error {
	data, err := yaml.Marshal(r.Records())
	if err != nil {
		return fmt.Errorf("marshaling recording: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating recording directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing recording: %w", err)
	}
	return nil
}
