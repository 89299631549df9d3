package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

const (
	scriptName = "script.txt"
	cacheName  = "cache"
	lockName   = ".clapper.lock"

	// DefaultMovieName is the final movie filename unless configured otherwise.
	DefaultMovieName = "final_movie.mp4"
)

// ErrLocked reports that another render holds the project lock.
var ErrLocked = errors.New("project is locked by another render")

// Project is one render project rooted at a single directory.
type Project struct {
	name string
	dir  string
	lock *flock.Flock
}

// Resolve locates a project. A bare name resolves under projectsDir; a value
// containing a path separator is treated as a project directory itself, so
// operators can point at projects outside the configured tree.
func Resolve(projectsDir, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("project name is required")
	}

	var dir string
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		abs, err := filepath.Abs(filepath.Clean(name))
		if err != nil {
			return nil, fmt.Errorf("resolve project path: %w", err)
		}
		dir = abs
		name = filepath.Base(abs)
	} else {
		if strings.TrimSpace(projectsDir) == "" {
			return nil, errors.New("projects directory is not configured")
		}
		dir = filepath.Join(projectsDir, name)
	}

	return &Project{
		name: name,
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockName)),
	}, nil
}

// Name returns the project's display name.
func (p *Project) Name() string { return p.name }

// Dir returns the project root directory.
func (p *Project) Dir() string { return p.dir }

// ScriptPath returns the script location inside the project.
func (p *Project) ScriptPath() string { return filepath.Join(p.dir, scriptName) }

// CacheDir returns the artifact cache root inside the project.
func (p *Project) CacheDir() string { return filepath.Join(p.dir, cacheName) }

// MoviePath returns the final movie location. An empty filename falls back to
// DefaultMovieName.
func (p *Project) MoviePath(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		filename = DefaultMovieName
	}
	return filepath.Join(p.dir, filename)
}

// LockPath returns the advisory lock file location.
func (p *Project) LockPath() string { return p.lock.Path() }

// RequireScript verifies the project directory holds a script.
func (p *Project) RequireScript() error {
	info, err := os.Stat(p.ScriptPath())
	if err != nil {
		return fmt.Errorf("project %s has no script: %w", p.name, err)
	}
	if info.IsDir() {
		return fmt.Errorf("project %s: %s is a directory", p.name, scriptName)
	}
	return nil
}

// Lock takes the project's advisory lock without blocking. A held lock
// returns ErrLocked so a second concurrent render fails fast instead of
// racing the cache's single-writer assumption.
func (p *Project) Lock() error {
	ok, err := p.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire project lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, p.lock.Path())
	}
	return nil
}

// Unlock releases the advisory lock.
func (p *Project) Unlock() error {
	return p.lock.Unlock()
}
