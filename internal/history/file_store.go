package history

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

type opKind int

const (
	opAppend opKind = iota
	opRead
)

type request struct {
	op    opKind
	text  string
	reply chan result
}

type result struct {
	lines []string
	err   error
}

// FileStore keeps one log file per room under dir. Each room is served by its
// own writer goroutine, so appends and reads of one room are strictly ordered
// while slow I/O in one room never delays another.
type FileStore struct {
	dir  string
	opts options

	mu      sync.RWMutex
	closed  bool
	writers map[string]*roomWriter
	wg      sync.WaitGroup
}

type roomWriter struct {
	path string
	reqs chan request
	done chan struct{}
	f    *os.File
}

func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}
	return &FileStore{
		dir:     dir,
		opts:    buildOptions(opts),
		writers: make(map[string]*roomWriter),
	}, nil
}

// Path is the log file of room.
func (s *FileStore) Path(room string) string {
	return filepath.Join(s.dir, url.PathEscape(room)+".log")
}

func (s *FileStore) Append(ctx context.Context, room, text string) error {
	_, err := s.do(ctx, room, request{op: opAppend, text: text})
	return err
}

func (s *FileStore) ReadAll(ctx context.Context, room string) ([]string, error) {
	return s.do(ctx, room, request{op: opRead})
}

// Close stops every writer after it drains queued requests and closes the files.
func (s *FileStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for _, w := range s.writers {
		close(w.reqs)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Forget stops the room's writer once its queued requests are served and
// closes its file. A later request for the room starts a new writer.
func (s *FileStore) Forget(room string) {
	s.mu.Lock()
	w, ok := s.writers[room]
	if !ok || s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.writers, room)
	close(w.reqs)
	s.mu.Unlock()

	<-w.done
}

func (s *FileStore) do(ctx context.Context, room string, req request) ([]string, error) {
	req.reply = make(chan result, 1)

	w, err := s.writer(room)
	if err != nil {
		return nil, err
	}
	// the read lock fences Close so no request is sent on a closed queue
	select {
	case w.reqs <- req:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return nil, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.lines, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// writer returns the room's writer with s.mu read-locked.
func (s *FileStore) writer(room string) (*roomWriter, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	if w, ok := s.writers[room]; ok {
		return w, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	w, ok := s.writers[room]
	if !ok {
		w = &roomWriter{path: s.Path(room), reqs: make(chan request, 64), done: make(chan struct{})}
		s.writers[room] = w
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			w.run(s.opts)
		}()
	}
	s.mu.Unlock()

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	return w, nil
}

func (w *roomWriter) run(opts options) {
	defer func() {
		if w.f != nil {
			_ = w.f.Close()
		}
		close(w.done)
	}()

	for req := range w.reqs {
		var res result
		switch req.op {
		case opAppend:
			res.err = w.append(domain.FormatHistoryLine(opts.now(), req.text))
		case opRead:
			res.lines, res.err = w.read()
		}
		req.reply <- res
	}
}

func (w *roomWriter) append(line string) error {
	if w.f == nil {
		f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("history: open %s: %w", w.path, err)
		}
		w.f = f
	}
	// one write per line keeps lines whole even if another process appends
	if _, err := w.f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("history: write %s: %w", w.path, err)
	}
	return nil
}

func (w *roomWriter) read() ([]string, error) {
	f, err := os.Open(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", w.path, err)
	}
	defer f.Close()

	lines := []string{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("history: read %s: %w", w.path, err)
	}
	return lines, nil
}
