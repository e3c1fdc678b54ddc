package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Reconciler repairs stored plan ceilings for all stores.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (int, error)
}

// Manager runs the periodic background tasks
type Manager struct {
	reconciler      Reconciler
	interval        time.Duration
	reconcileTicker *time.Ticker
	stopCh          chan struct{}
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.Mutex
	running         bool
}

// NewManager creates a manager that sweeps plan ceilings every interval.
func NewManager(reconciler Reconciler, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Manager{
		reconciler: reconciler,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
}

// Start starts the background tasks. A sweep runs right away.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	log.Infof("[Scheduler] Starting reconcile worker (interval: %s)", m.interval)

	m.reconcileTicker = time.NewTicker(m.interval)
	m.wg.Add(1)
	go m.reconcileWorker(ctx, m.stopCh, m.reconcileTicker)
}

// Stop stops the background tasks and waits for a running sweep to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Scheduler] Stopping background tasks...")
	if m.reconcileTicker != nil {
		m.reconcileTicker.Stop()
	}
	close(m.stopCh)
	m.cancel()
	m.running = false

	m.wg.Wait()
	log.Info("[Scheduler] Stopped successfully")
}

// IsRunning reports whether the background tasks are active.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// RunReconcile performs one sweep.
func (m *Manager) RunReconcile(ctx context.Context) {
	changed, err := m.reconciler.ReconcileAll(ctx)
	if err != nil {
		log.Errorf("[Scheduler] Reconcile sweep failed (%d stores changed): %v", changed, err)
		return
	}
	if changed > 0 {
		log.Infof("[Scheduler] Reconcile sweep repaired %d stores", changed)
	} else {
		log.Debug("[Scheduler] Reconcile sweep found nothing to repair")
	}
}

func (m *Manager) reconcileWorker(ctx context.Context, stopCh <-chan struct{}, ticker *time.Ticker) {
	defer m.wg.Done()

	m.RunReconcile(ctx)
	for {
		select {
		case <-stopCh:
			log.Info("[Scheduler] Reconcile worker stopping")
			return
		case <-ticker.C:
			m.RunReconcile(ctx)
		}
	}
}
