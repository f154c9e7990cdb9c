package speech

import (
	"sync"
	"time"
)

// Status 合成状态
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Result points at the stored artifacts of a finished synthesis.
type Result struct {
	AudioKey     string `json:"audioKey"`
	SentencesKey string `json:"sentencesKey"`
}

// Snapshot is an immutable copy of a State at one point in time.
type Snapshot struct {
	Hash    string    `json:"hash"`
	Status  Status    `json:"status"`
	Started time.Time `json:"started"`
	Result  *Result   `json:"result,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Elapsed returns how long the synthesis has been running as of now.
func (s Snapshot) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.Started)
}

// State 每个内容哈希对应一个，进程生命周期内常驻内存
type State struct {
	Hash    string
	Started time.Time

	mu     sync.RWMutex
	status Status
	result *Result
	err    string
	done   chan struct{}
}

func newState(hash string, started time.Time) *State {
	return &State{
		Hash:    hash,
		Started: started,
		status:  StatusPending,
		done:    make(chan struct{}),
	}
}

// Snapshot returns the current status, result and error.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Hash:    s.Hash,
		Status:  s.status,
		Started: s.Started,
		Error:   s.err,
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	return snap
}

// Status returns the current status.
func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Done is closed once the state reaches done or error.
func (s *State) Done() <-chan struct{} {
	return s.done
}

// complete 只允许从 pending 转换一次
func (s *State) complete(result Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPending {
		return false
	}
	s.status = StatusDone
	s.result = &result
	close(s.done)
	return true
}

func (s *State) fail(msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPending {
		return false
	}
	s.status = StatusError
	s.err = msg
	close(s.done)
	return true
}
