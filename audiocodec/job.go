package audiocodec

import (
	"io"
	"sync/atomic"
)

// Job runs a decode on a background goroutine. The caller polls Finished
// and collects the result with Result; there is no cancellation and no
// timeout.
type Job struct {
	finished atomic.Bool
	clip     Clip
	err      error
}

// Start runs fn on a new goroutine.
func Start(fn func() (Clip, error)) *Job {
	j := new(Job)
	go func() {
		j.clip, j.err = fn()
		j.finished.Store(true)
	}()
	return j
}

// StartImport decodes a WAV stream in the background.
func StartImport(r io.Reader) *Job {
	return Start(func() (Clip, error) {
		return ImportWAV(r)
	})
}

// Finished reports whether the job has completed.
func (j *Job) Finished() bool {
	return j.finished.Load()
}

// Result returns the outcome of the job. It must not be called before
// Finished returns true.
func (j *Job) Result() (Clip, error) {
	if !j.Finished() {
		panic("audiocodec: result of unfinished job")
	}
	return j.clip, j.err
}

// Pump calls yield until the job has finished, then returns its result.
// yield is expected to hand control back to the caller's event loop.
func (j *Job) Pump(yield func()) (Clip, error) {
	for !j.Finished() {
		yield()
	}
	return j.Result()
}
