package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Runner er arbeidet som utføres per analyse – i praksis orkestratoren.
type Runner interface {
	Run(ctx context.Context, analysisID, repoURL string) error
}

var (
	// ErrQueueFull er backpressure-signalet: køen er mettet og kalleren
	// må be klienten prøve igjen senere.
	ErrQueueFull = errors.New("analysekøen er full")
	// ErrAlreadyTracked betyr at samme analyse-id allerede er i kø
	// eller under arbeid.
	ErrAlreadyTracked = errors.New("analysen er allerede i kø eller under arbeid")
)

const (
	StatusNotFound = "not_found"
	StatusQueued   = "queued"
	StatusRunning  = "running"
)

type task struct {
	analysisID string
	repoURL    string
}

// TaskStatus er svaret på en statusforespørsel.
type TaskStatus struct {
	Status    string    `json:"status"`
	StartTime time.Time `json:"start_time,omitzero"`
	RepoURL   string    `json:"repo_url,omitempty"`
}

type trackedTask struct {
	repoURL   string
	state     string
	startTime time.Time
}

// Scheduler er et avgrenset arbeiderbasseng med kø. Maks én sporet
// oppføring per analyse-id; oppføringen fjernes når arbeidet er ferdig,
// uansett utfall – varig status leses fra lageret.
type Scheduler struct {
	runner   Runner
	queue    chan task
	workers  int
	mu       sync.Mutex
	tracked  map[string]*trackedTask
	group    *errgroup.Group
	stopOnce sync.Once
}

func New(runner Runner, workers, queueSize int) *Scheduler {
	return &Scheduler{
		runner:  runner,
		queue:   make(chan task, queueSize),
		workers: workers,
		tracked: map[string]*trackedTask{},
	}
}

// Start spinner opp arbeiderne. Arbeidet kjøres med den gitte
// konteksten; når den kanselleres tømmes ikke køen videre.
func (s *Scheduler) Start(ctx context.Context) {
	s.group = &errgroup.Group{}
	for i := 0; i < s.workers; i++ {
		s.group.Go(func() error {
			return s.worker(ctx)
		})
	}
	slog.Info("Analyse-arbeidere startet", "antall", s.workers, "kø", cap(s.queue))
}

func (s *Scheduler) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case t, ok := <-s.queue:
			if !ok {
				return nil
			}
			s.setRunning(t.analysisID)
			if err := s.runner.Run(ctx, t.analysisID, t.repoURL); err != nil {
				// Feilårsaken er allerede registrert på analysen; her
				// logger vi den bare for drift.
				slog.Error("Analyse-arbeider feilet", "analysis_id", t.analysisID, "error", err)
			}
			s.remove(t.analysisID)
		}
	}
}

// Submit legger en analyse i kø uten å blokkere kalleren.
func (s *Scheduler) Submit(analysisID, repoURL string) error {
	s.mu.Lock()
	if _, ok := s.tracked[analysisID]; ok {
		s.mu.Unlock()
		return ErrAlreadyTracked
	}
	s.tracked[analysisID] = &trackedTask{
		repoURL:   repoURL,
		state:     StatusQueued,
		startTime: time.Now().UTC(),
	}
	s.mu.Unlock()

	select {
	case s.queue <- task{analysisID: analysisID, repoURL: repoURL}:
		return nil
	default:
		s.remove(analysisID)
		return ErrQueueFull
	}
}

// Status svarer not_found for usporede id-er; ellers queued/running.
func (s *Scheduler) Status(analysisID string) TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tracked[analysisID]
	if !ok {
		return TaskStatus{Status: StatusNotFound}
	}
	return TaskStatus{
		Status:    t.state,
		StartTime: t.startTime,
		RepoURL:   t.repoURL,
	}
}

// Stop lukker køen og venter på at arbeiderne blir ferdige.
func (s *Scheduler) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.queue)
		if s.group != nil {
			err = s.group.Wait()
		}
	})
	return err
}

func (s *Scheduler) setRunning(analysisID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tracked[analysisID]; ok {
		t.state = StatusRunning
		t.startTime = time.Now().UTC()
	}
}

func (s *Scheduler) remove(analysisID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tracked, analysisID)
}
