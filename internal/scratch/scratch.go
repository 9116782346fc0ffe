// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

// Package scratch hands out request scoped temporary files.
//
// Every request opens a Session, which owns a uniquely named directory under
// the manager root. Files acquired from the session live in that directory and
// are removed when released or, at the latest, when the session is closed.
// Sessions never share paths, so concurrent requests need no locking.
package scratch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Stats are cumulative counters for a Manager.
type Stats struct {
	Sessions int64
	Acquired int64
	Released int64
}

// Manager creates sessions under a root directory.
type Manager struct {
	root string

	sessions atomic.Int64
	acquired atomic.Int64
	released atomic.Int64
}

// New returns a Manager rooted at dir. An empty dir selects a "docconv"
// directory under os.TempDir().
func New(dir string) (*Manager, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "docconv")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create scratch root: %w", err)
	}
	return &Manager{root: dir}, nil
}

// Root returns the directory sessions are created in.
func (m *Manager) Root() string {
	return m.root
}

// Stats returns a snapshot of the counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Sessions: m.sessions.Load(),
		Acquired: m.acquired.Load(),
		Released: m.released.Load(),
	}
}

// Session creates a new, empty session directory.
func (m *Manager) Session() (*Session, error) {
	name := strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + uuid.NewString()
	dir := filepath.Join(m.root, name)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	m.sessions.Add(1)
	return &Session{m: m, dir: dir, live: make(map[string]struct{})}, nil
}

// Session owns the scratch files of one request.
type Session struct {
	m   *Manager
	dir string

	mu     sync.Mutex
	seq    int
	live   map[string]struct{}
	closed bool
}

// Dir returns the session directory.
func (s *Session) Dir() string {
	return s.dir
}

// Acquire creates an empty file with the given extension and returns its path
// and an idempotent release function that deletes it.
func (s *Session) Acquire(ext string) (string, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", nil, errors.New("scratch session closed")
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	s.seq++
	path := filepath.Join(s.dir, fmt.Sprintf("%03d-%s%s", s.seq, uuid.NewString()[:8], ext))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", nil, fmt.Errorf("create scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", nil, fmt.Errorf("create scratch file: %w", err)
	}

	s.live[path] = struct{}{}
	s.m.acquired.Add(1)

	var once sync.Once
	release := func() {
		once.Do(func() { s.release(path) })
	}
	return path, release, nil
}

func (s *Session) release(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[path]; !ok {
		return
	}
	delete(s.live, path)
	os.Remove(path)
	s.m.released.Add(1)
}

// Live returns the number of acquired files not yet released.
func (s *Session) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Close releases every remaining file and removes the session directory,
// including anything external processes left behind in it. Close is safe to
// call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for path := range s.live {
		delete(s.live, path)
		s.m.released.Add(1)
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("remove session dir: %w", err)
	}
	return nil
}
