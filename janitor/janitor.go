// Package janitor removes files and jobs left behind by crashed or
// interrupted renders.
package janitor

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/drewmudry/manimgen-api/internal/failure"
	"github.com/drewmudry/manimgen-api/internal/platform"
	"github.com/drewmudry/manimgen-api/models"
)

type Janitor struct {
	DB *gorm.DB

	ScratchDir    string
	ClipDir       string
	ScratchMaxAge time.Duration
	ClipMaxAge    time.Duration
	JobStaleAfter time.Duration

	// Every is the sweep interval in cron "@every" form.
	Every string

	now func() time.Time
}

func New(db *gorm.DB, cfg *platform.Config) *Janitor {
	return &Janitor{
		DB:            db,
		ScratchDir:    cfg.ScratchDir,
		ClipDir:       cfg.ClipDir,
		ScratchMaxAge: cfg.ScratchMaxAge,
		ClipMaxAge:    cfg.ClipMaxAge,
		JobStaleAfter: cfg.JobStaleAfter,
		Every:         "@every 5m",
		now:           time.Now,
	}
}

// Schedule registers every sweep on c.
func (j *Janitor) Schedule(c *cron.Cron) error {
	entries := []struct {
		name string
		run  func() (int, error)
	}{
		{"scratch scripts", j.SweepScratch},
		{"uploaded clips", j.SweepClips},
		{"stale jobs", j.FailStaleJobs},
	}
	for _, e := range entries {
		e := e
		if _, err := c.AddFunc(j.Every, func() { j.report(e.name, e.run) }); err != nil {
			return err
		}
	}
	return nil
}

// RunOnce performs every sweep immediately.
func (j *Janitor) RunOnce() {
	j.report("scratch scripts", j.SweepScratch)
	j.report("uploaded clips", j.SweepClips)
	j.report("stale jobs", j.FailStaleJobs)
}

func (j *Janitor) report(name string, run func() (int, error)) {
	n, err := run()
	if err != nil {
		log.WithField("sweep", name).Errorf("Sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.WithField("sweep", name).Infof("Cleaned up %d item(s)", n)
	}
}

// SweepScratch removes scene scripts that outlived any possible render.
func (j *Janitor) SweepScratch() (int, error) {
	return j.sweepDir(j.ScratchDir, "scene_*.py", j.ScratchMaxAge)
}

// SweepClips removes uploads that were never stitched.
func (j *Janitor) SweepClips() (int, error) {
	return j.sweepDir(j.ClipDir, "*", j.ClipMaxAge)
}

// FailStaleJobs marks jobs stuck in processing as timed out.
func (j *Janitor) FailStaleJobs() (int, error) {
	if j.DB == nil || j.JobStaleAfter <= 0 {
		return 0, nil
	}
	jobs, err := models.StaleJobs(j.DB, j.JobStaleAfter)
	if err != nil {
		return 0, err
	}
	stale := failure.New(failure.CodeRenderTimeout, "job did not finish within %s", j.JobStaleAfter)
	n := 0
	for i := range jobs {
		if err := jobs[i].MarkFailed(j.DB, stale); err != nil {
			return n, err
		}
		log.WithField("job_id", jobs[i].ID).Warn("Marked stale job as failed")
		n++
	}
	return n, nil
}

func (j *Janitor) sweepDir(dir, pattern string, maxAge time.Duration) (int, error) {
	if dir == "" || maxAge <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := j.now().Add(-maxAge)
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(pattern, e.Name()); !ok {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.WithField("file", e.Name()).Warnf("Could not remove: %v", err)
			continue
		}
		n++
	}
	return n, nil
}
