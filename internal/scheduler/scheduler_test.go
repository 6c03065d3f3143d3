package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kittinan/git-soul/internal/scheduler"
)

func TestScheduler(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Scheduler Suite")
}

// blockingRunner lar testen styre når hvert kjøringsforsøk blir ferdig.
type blockingRunner struct {
	mu      sync.Mutex
	started chan string
	release chan struct{}
	runs    []string
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan string, 16),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) Run(ctx context.Context, analysisID, repoURL string) error {
	r.mu.Lock()
	r.runs = append(r.runs, analysisID)
	r.mu.Unlock()

	r.started <- analysisID
	select {
	case <-r.release:
	case <-ctx.Done():
	}
	return nil
}

func (r *blockingRunner) ranIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

var _ = Describe("Scheduler", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		runner *blockingRunner
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		runner = newBlockingRunner()
	})

	AfterEach(func() {
		cancel()
	})

	It("kjører innsendte analyser gjennom runneren", func() {
		s := scheduler.New(runner, 2, 4)
		s.Start(ctx)

		Expect(s.Submit("an-1", "https://github.com/navikt/demo")).To(Succeed())

		Eventually(runner.started).Should(Receive(Equal("an-1")))
		close(runner.release)
		Expect(s.Stop()).To(Succeed())
		Expect(runner.ranIDs()).To(ContainElement("an-1"))
	})

	It("avviser duplikat-id mens analysen er sporet", func() {
		s := scheduler.New(runner, 1, 4)
		s.Start(ctx)
		defer func() {
			close(runner.release)
			_ = s.Stop()
		}()

		Expect(s.Submit("an-1", "url")).To(Succeed())
		Expect(s.Submit("an-1", "url")).To(MatchError(scheduler.ErrAlreadyTracked))
	})

	It("gir ErrQueueFull når køen er mettet", func() {
		// Én arbeider som blokkerer, kø med plass til én.
		s := scheduler.New(runner, 1, 1)
		s.Start(ctx)
		defer func() {
			close(runner.release)
			_ = s.Stop()
		}()

		Expect(s.Submit("an-1", "url")).To(Succeed())
		Eventually(runner.started).Should(Receive()) // an-1 kjører, køen er tom

		Expect(s.Submit("an-2", "url")).To(Succeed()) // fyller køen
		err := s.Submit("an-3", "url")
		Expect(err).To(MatchError(scheduler.ErrQueueFull))

		// Avvist innsending skal ikke etterlate spor.
		Expect(s.Status("an-3").Status).To(Equal(scheduler.StatusNotFound))
	})

	It("rapporterer queued, running og not_found", func() {
		s := scheduler.New(runner, 1, 4)
		s.Start(ctx)

		Expect(s.Submit("an-1", "url-1")).To(Succeed())
		Expect(s.Submit("an-2", "url-2")).To(Succeed())

		Eventually(runner.started).Should(Receive(Equal("an-1")))
		Eventually(func() string { return s.Status("an-1").Status }).Should(Equal(scheduler.StatusRunning))
		Expect(s.Status("an-2").Status).To(Equal(scheduler.StatusQueued))
		Expect(s.Status("an-2").RepoURL).To(Equal("url-2"))

		close(runner.release)
		Expect(s.Stop()).To(Succeed())

		// Ferdige kjøringer spores ikke lenger.
		Eventually(func() string { return s.Status("an-1").Status }).Should(Equal(scheduler.StatusNotFound))
		Expect(s.Status("ukjent").Status).To(Equal(scheduler.StatusNotFound))
	})

	It("drenerer køen ved Stop", func() {
		s := scheduler.New(runner, 2, 8)
		s.Start(ctx)

		for _, id := range []string{"an-1", "an-2", "an-3"} {
			Expect(s.Submit(id, "url")).To(Succeed())
		}
		close(runner.release)

		Expect(s.Stop()).To(Succeed())
		Expect(runner.ranIDs()).To(ConsistOf("an-1", "an-2", "an-3"))
	})

	It("tåler at Stop kalles flere ganger", func() {
		s := scheduler.New(runner, 1, 1)
		s.Start(ctx)
		close(runner.release)

		Expect(s.Stop()).To(Succeed())
		Expect(s.Stop()).To(Succeed())
	})
})

var _ = Describe("TaskStatus", func() {
	It("setter starttidspunkt ved innsending", func() {
		runner := newBlockingRunner()
		s := scheduler.New(runner, 1, 4)

		before := time.Now().UTC()
		Expect(s.Submit("an-1", "url")).To(Succeed())

		status := s.Status("an-1")
		Expect(status.Status).To(Equal(scheduler.StatusQueued))
		Expect(status.StartTime).To(BeTemporally(">=", before.Add(-time.Second)))
	})
})
