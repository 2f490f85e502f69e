package ocr

import (
	"context"
	"sync"
)

// Outcome is the result of one background reading.
type Outcome struct {
	// Job is the job number returned by Start.
	Job uint64

	// Candidate is the reading's candidate equation.
	Candidate Candidate

	// Err is the reading's error, if any.
	Err error

	// Superseded is set when another reading was started after this one.
	// Callers should discard superseded outcomes.
	Superseded bool
}

// Session runs readings in the background, one current job at a time.
//
// Starting a job supersedes the outstanding one. The old job is not
// cancelled; it runs to completion, but its progress is no longer reported
// and its outcome is marked Superseded.
type Session struct {
	reader *Reader

	mu      sync.Mutex
	current uint64

	wg sync.WaitGroup
}

// NewSession creates a Session reading with reader.
func NewSession(reader *Reader) *Session {
	return &Session{reader: reader}
}

// Start begins reading image in the background and returns the job number
// and a channel that receives exactly one Outcome.
func (s *Session) Start(ctx context.Context, image []byte, progress ProgressFunc) (uint64, <-chan Outcome) {
	s.mu.Lock()
	s.current++
	job := s.current
	s.mu.Unlock()

	out := make(chan Outcome, 1)

	s.wg.Go(func() {
		defer close(out)

		report := func(p Progress) {
			if progress != nil && s.IsCurrent(job) {
				progress(p)
			}
		}

		candidate, err := s.reader.Read(ctx, image, report)
		out <- Outcome{
			Job:        job,
			Candidate:  candidate,
			Err:        err,
			Superseded: !s.IsCurrent(job),
		}
	})

	return job, out
}

// IsCurrent reports whether job is the most recently started job.
func (s *Session) IsCurrent(job uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current == job
}

// Wait blocks until every started job has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}
