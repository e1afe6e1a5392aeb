package render

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/drewmudry/manimgen-api/internal/failure"
)

const partialMovieDir = "partial_movie_files"

var errFound = errors.New("found")

// Locator finds the video the engine wrote for a script.
//
// The engine writes to mediaRoot/videos/<stem>/<profile>/<Scene>.mp4, but the
// profile folder name depends on engine version and config, so the lookup
// falls back to progressively looser scans:
//  1. known profile folders under the script's stem
//  2. any video whose directory path contains the job id
//  3. the newest video anywhere under the media root
//
// Tier 3 can return another job's video when several renders share a media
// root and the first two tiers miss.
type Locator struct {
	MediaRoot  string
	Extensions []string
}

func NewLocator(mediaRoot string) *Locator {
	return &Locator{MediaRoot: mediaRoot, Extensions: []string{".mp4"}}
}

// Locate returns the artifact path or an ARTIFACT_NOT_FOUND failure.
func (l *Locator) Locate(h *ScriptHandle, quality Quality) (string, error) {
	entry := log.WithFields(log.Fields{"job_id": h.JobID, "scene": h.EntryPoint})

	if p := l.probeProfiles(h, quality); p != "" {
		return p, nil
	}
	if p := l.scanForJob(h); p != "" {
		entry.WithField("path", p).Warn("Artifact found by job id scan")
		return p, nil
	}
	if p := l.newestAnywhere(); p != "" {
		entry.WithField("path", p).Warn("Artifact found by newest-file fallback")
		return p, nil
	}
	return "", failure.New(failure.CodeArtifactNotFound, "video file not found after a successful render")
}

func (l *Locator) probeProfiles(h *ScriptHandle, quality Quality) string {
	base := filepath.Join(l.MediaRoot, "videos", h.Stem)
	for _, profile := range probeOrder(quality) {
		entries, err := os.ReadDir(filepath.Join(base, profile))
		if err != nil {
			continue
		}
		var newest string
		var newestMod time.Time
		for _, e := range entries {
			if e.IsDir() || !l.isMedia(e.Name()) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if newest == "" || info.ModTime().After(newestMod) {
				newest = filepath.Join(base, profile, e.Name())
				newestMod = info.ModTime()
			}
		}
		if newest != "" {
			return newest
		}
	}
	return ""
}

func (l *Locator) scanForJob(h *ScriptHandle) string {
	var found string
	_ = filepath.WalkDir(filepath.Join(l.MediaRoot, "videos"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == partialMovieDir {
				return filepath.SkipDir
			}
			return nil
		}
		if l.isMedia(d.Name()) && strings.Contains(filepath.Dir(path), h.JobID) {
			found = path
			return errFound
		}
		return nil
	})
	return found
}

func (l *Locator) newestAnywhere() string {
	var newest string
	var newestMod time.Time
	_ = filepath.WalkDir(l.MediaRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == partialMovieDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !l.isMedia(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = path
			newestMod = info.ModTime()
		}
		return nil
	})
	return newest
}

func (l *Locator) isMedia(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range l.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// probeOrder puts the profile matching quality first, then every other known one.
func probeOrder(quality Quality) []string {
	first := quality.Profile()
	order := []string{first}
	for _, p := range profileDirs {
		if p != first {
			order = append(order, p)
		}
	}
	return order
}
