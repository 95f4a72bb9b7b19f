// Package history keeps a ledger of render sessions in SQLite.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/RaphaelK12/blospray/pkg/export"
	"github.com/RaphaelK12/blospray/pkg/session"
)

// ErrNotFound is returned when no render has the requested id.
var ErrNotFound = errors.New("history: render not found")

// Render is one session: what was exported, how far rendering got and how
// it ended.
type Render struct {
	ID       uint   `gorm:"primaryKey"`
	Scene    string `gorm:"index"`
	Server   string
	Frame    int
	Renderer string
	Samples  uint32
	Width    uint32
	Height   uint32

	// Outcome is one of the session outcome labels ("done", "canceled",
	// ...) or "running" while the session is open.
	Outcome string `gorm:"index"`
	Error   string

	Objects         int
	Lights          int
	MeshesSent      int
	MeshesReused    int
	MaterialsSent   int
	MaterialsReused int
	PluginInstances int
	Skipped         int

	SamplesDone   uint32
	Frames        int
	BytesReceived int64
	PeakMemory    float32
	Image         string

	ExportMS   int64
	RenderMS   int64
	StartedAt  time.Time `gorm:"index"`
	FinishedAt *time.Time
}

// OutcomeRunning marks a render that has not finished yet.
const OutcomeRunning = "running"

// ApplyReport copies the export counters.
func (r *Render) ApplyReport(rep *export.Report) {
	if rep == nil {
		return
	}
	r.Objects = rep.Objects
	r.Lights = rep.Lights
	r.MeshesSent = rep.MeshesSent
	r.MeshesReused = rep.MeshesReused
	r.MaterialsSent = rep.MaterialsSent
	r.MaterialsReused = rep.MaterialsReused
	r.PluginInstances = rep.PluginInstances
	r.Skipped = len(rep.Diagnostics)
	r.ExportMS = rep.Duration.Milliseconds()
}

// ApplyStats copies the render statistics.
func (r *Render) ApplyStats(st session.Stats) {
	r.SamplesDone = st.Sample
	r.Frames = st.Frames
	r.BytesReceived = st.BytesReceived
	r.PeakMemory = st.PeakMemoryUsage
	r.RenderMS = st.Elapsed.Milliseconds()
	if st.Width > 0 {
		r.Width, r.Height = st.Width, st.Height
	}
}

// Store is the render ledger.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Render{}); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Begin records a new render as running and assigns its ID.
func (s *Store) Begin(r *Render) error {
	r.ID = 0
	r.Outcome = OutcomeRunning
	r.StartedAt = s.now()
	r.FinishedAt = nil
	return s.db.Create(r).Error
}

// Finish stores the final state of r with its outcome and error.
func (s *Store) Finish(r *Render, outcome string, err error) error {
	if r.ID == 0 {
		return fmt.Errorf("history: finish before begin")
	}
	t := s.now()
	r.FinishedAt = &t
	r.Outcome = outcome
	r.Error = ""
	if err != nil {
		r.Error = err.Error()
	}
	return s.db.Save(r).Error
}

// Get returns the render with the given id.
func (s *Store) Get(id uint) (*Render, error) {
	var r Render
	err := s.db.First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Filter selects renders for List.
type Filter struct {
	Scene   string
	Outcome string
	Limit   int // 0 = 20
}

// List returns renders, newest first.
func (s *Store) List(f Filter) ([]Render, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	q := s.db.Model(&Render{})
	if f.Scene != "" {
		q = q.Where("scene = ?", f.Scene)
	}
	if f.Outcome != "" {
		q = q.Where("outcome = ?", f.Outcome)
	}
	var out []Render
	err := q.Order("started_at DESC").Order("id DESC").Limit(f.Limit).Find(&out).Error
	return out, err
}

// Prune deletes all but the newest keep renders and returns how many were
// removed.
func (s *Store) Prune(keep int) (int64, error) {
	var ids []uint
	if keep > 0 {
		if err := s.db.Model(&Render{}).Order("started_at DESC").Order("id DESC").
			Limit(keep).Pluck("id", &ids).Error; err != nil {
			return 0, err
		}
	}
	q := s.db.Model(&Render{})
	if len(ids) > 0 {
		q = q.Where("id NOT IN ?", ids)
	} else {
		q = q.Where("1 = 1")
	}
	res := q.Delete(&Render{})
	return res.RowsAffected, res.Error
}
