package printer

import (
	"fmt"
	"image"
	"sync"

	"github.com/cjeanneret/photobooth/internal/debug"
)

// Job is a print recorded by Mock.
type Job struct {
	ID     JobID
	Image  image.Image
	Copies int
	Done   bool
}

// Mock is an in-memory printer. Used for development on PC or testing.
// Jobs stay pending until Finish, unless AutoFinish is set.
type Mock struct {
	mu         sync.Mutex
	AutoFinish bool
	StartErr   error
	PrintErr   error
	PollErr    error
	jobs       []*Job
}

func (m *Mock) Start() error {
	debug.Info("Using MOCK printer")
	return m.StartErr
}

func (m *Mock) PrintImage(img image.Image, copies int) (JobID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PrintErr != nil {
		return "", m.PrintErr
	}
	job := &Job{
		ID:     JobID(fmt.Sprintf("mock-%d", len(m.jobs)+1)),
		Image:  img,
		Copies: copies,
		Done:   m.AutoFinish,
	}
	m.jobs = append(m.jobs, job)
	debug.Info("Mock print job %s (%d copies)", job.ID, copies)
	return job.ID, nil
}

func (m *Mock) HasFinished(id JobID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PollErr != nil {
		return false, m.PollErr
	}
	for _, j := range m.jobs {
		if j.ID == id {
			return j.Done, nil
		}
	}
	return false, fmt.Errorf("unknown job %s", id)
}

// Finish marks a job as printed.
func (m *Mock) Finish(id JobID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.ID == id {
			j.Done = true
		}
	}
}

// Jobs returns a copy of the submitted jobs.
func (m *Mock) Jobs() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Job, len(m.jobs))
	for i, j := range m.jobs {
		out[i] = *j
	}
	return out
}
