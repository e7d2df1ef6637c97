// Package connectivity watches whether the cloud backend is reachable.
// The monitor probes a health URL on an interval, exposes the latest
// answer, and fires callbacks on the offline-to-online transition so the
// sync layer can trigger an immediate cycle after an outage.
package connectivity

import (
	"context"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

// DefaultInterval is how often the probe runs.
const DefaultInterval = 30 * time.Second

const probeTimeout = 5 * time.Second

// Monitor probes a URL periodically. Safe for concurrent use.
type Monitor struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   *log.Logger

	mu          sync.Mutex
	online      bool
	probed      bool
	onReconnect []func()

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options configures a Monitor. URL is required.
type Options struct {
	URL      string
	Interval time.Duration
	Client   *http.Client
	Logger   *log.Logger
}

// NewMonitor builds a Monitor. It does not probe until Start.
func NewMonitor(opts Options) *Monitor {
	m := &Monitor{
		url:      opts.URL,
		interval: opts.Interval,
		client:   opts.Client,
		logger:   opts.Logger,
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	if m.client == nil {
		m.client = &http.Client{Timeout: probeTimeout}
	}
	if m.logger == nil {
		m.logger = log.New(os.Stderr, "[connectivity] ", log.LstdFlags)
	}
	return m
}

// Online returns the latest probe answer. Before the first probe it
// reports true so startup work is not blocked on the monitor.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.probed {
		return true
	}
	return m.online
}

// OnReconnect registers fn to run after an offline-to-online
// transition. Callbacks run on the monitor goroutine.
func (m *Monitor) OnReconnect(fn func()) {
	m.mu.Lock()
	m.onReconnect = append(m.onReconnect, fn)
	m.mu.Unlock()
}

// Start probes immediately, then on every interval until Stop.
func (m *Monitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.check(ctx)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.check(ctx)
			}
		}
	}()
}

// Stop halts probing and waits for the monitor goroutine.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

// Check runs one probe now and returns the answer.
func (m *Monitor) Check(ctx context.Context) bool {
	return m.check(ctx)
}

func (m *Monitor) check(ctx context.Context) bool {
	online := m.probe(ctx)

	m.mu.Lock()
	wasOnline := m.online
	hadProbed := m.probed
	m.online = online
	m.probed = true
	callbacks := make([]func(), len(m.onReconnect))
	copy(callbacks, m.onReconnect)
	m.mu.Unlock()

	if online && hadProbed && !wasOnline {
		m.logger.Printf("connectivity restored")
		for _, fn := range callbacks {
			fn()
		}
	}
	if !online && (!hadProbed || wasOnline) {
		m.logger.Printf("connectivity lost")
	}
	return online
}

func (m *Monitor) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.url, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	// Any HTTP answer proves the network path works, even an error
	// status from the health endpoint.
	return true
}
