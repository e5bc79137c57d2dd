package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/vinizap/zapvenda/pkg/domain"
	"github.com/vinizap/zapvenda/pkg/logger"
	"github.com/vinizap/zapvenda/pkg/storage"
)

const connectionKeyPrefix = "whatsapp:connection:"

// PollObserver is notified of every poll result (metrics).
type PollObserver interface {
	WhatsAppPolled(state State, err error)
}

type nopPollObserver struct{}

func (nopPollObserver) WhatsAppPolled(State, error) {}

// Poller polls a StatusChecker for every instance that is connecting until
// it reports connected.
type Poller struct {
	cron     *cron.Cron
	checker  StatusChecker
	store    storage.Store
	log      logger.Logger
	observer PollObserver
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]cron.EntryID
	subs    map[string]map[chan Connection]struct{}
}

// NewPoller creates a poller. interval is rounded down to whole seconds
// with a minimum of one second.
func NewPoller(checker StatusChecker, store storage.Store, interval time.Duration, log logger.Logger, observer PollObserver) *Poller {
	if log == nil {
		log = logger.Discard()
	}
	if observer == nil {
		observer = nopPollObserver{}
	}
	return &Poller{
		cron:     cron.New(),
		checker:  checker,
		store:    store,
		log:      log,
		observer: observer,
		interval: max(interval, time.Second),
		now:      time.Now,
		entries:  make(map[string]cron.EntryID),
		subs:     make(map[string]map[chan Connection]struct{}),
	}
}

// Start runs the scheduler until ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.cron.Start()
	go func() {
		<-ctx.Done()
		p.Stop()
	}()
}

// Stop removes every polling entry and waits for running polls to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	for instance, id := range p.entries {
		p.cron.Remove(id)
		delete(p.entries, instance)
	}
	p.mu.Unlock()

	<-p.cron.Stop().Done()
}

// Polling reports whether instance has an active polling entry.
func (p *Poller) Polling(instance string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[instance]
	return ok
}

// Connect marks instance as connecting and starts polling it. Connecting an
// instance that is already connected or polling returns its current state.
// The polling check, the stored state and the cron entry change together
// under p.mu, so concurrent connects schedule at most one entry.
func (p *Poller) Connect(ctx context.Context, instance string) (*Connection, error) {
	instance = strings.TrimSpace(instance)
	if instance == "" {
		return nil, domain.NewBadRequestError("instance is required")
	}

	p.mu.Lock()
	conn, started, err := p.startLocked(ctx, instance)
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if started {
		p.broadcast(*conn)
		p.log.Info("whatsapp polling started", "instance", instance, "interval", p.interval.String())
	}
	return conn, nil
}

func (p *Poller) startLocked(ctx context.Context, instance string) (*Connection, bool, error) {
	current, err := p.Status(ctx, instance)
	if err != nil {
		return nil, false, err
	}
	if _, polling := p.entries[instance]; polling || current.State == StateConnected {
		return current, false, nil
	}

	conn := Connection{Instance: instance, State: StateConnecting, UpdatedAt: p.now().UTC()}
	if err := p.persist(ctx, conn); err != nil {
		return nil, false, err
	}

	id, err := p.cron.AddFunc(fmt.Sprintf("@every %s", p.interval.Truncate(time.Second)), func() {
		pollCtx, cancel := context.WithTimeout(context.Background(), p.interval)
		defer cancel()
		p.poll(pollCtx, instance)
	})
	if err != nil {
		return nil, false, domain.NewInternalError(fmt.Errorf("failed to schedule polling: %w", err))
	}
	p.entries[instance] = id
	return &conn, true, nil
}

// Disconnect stops polling instance and stores it as disconnected. A poll
// still in flight cannot overwrite the disconnected state.
func (p *Poller) Disconnect(ctx context.Context, instance string) (*Connection, error) {
	conn := Connection{Instance: instance, State: StateDisconnected, UpdatedAt: p.now().UTC()}

	p.mu.Lock()
	p.removeLocked(instance)
	if r, ok := p.checker.(Resetter); ok {
		r.Reset(instance)
	}
	err := p.persist(ctx, conn)
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	p.broadcast(conn)
	p.log.Info("whatsapp disconnected", "instance", instance)
	return &conn, nil
}

// Status returns the last stored state, disconnected if none.
func (p *Poller) Status(ctx context.Context, instance string) (*Connection, error) {
	var conn Connection
	err := storage.GetJSON(ctx, p.store, connectionKeyPrefix+instance, &conn)
	if errors.Is(err, storage.ErrNotFound) {
		return &Connection{Instance: instance, State: StateDisconnected}, nil
	}
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	return &conn, nil
}

// Subscribe returns a channel receiving every state change of instance.
// Slow subscribers miss updates. Call the returned func to unsubscribe.
func (p *Poller) Subscribe(instance string) (<-chan Connection, func()) {
	ch := make(chan Connection, 8)

	p.mu.Lock()
	if p.subs[instance] == nil {
		p.subs[instance] = make(map[chan Connection]struct{})
	}
	p.subs[instance][ch] = struct{}{}
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs[instance], ch)
			if len(p.subs[instance]) == 0 {
				delete(p.subs, instance)
			}
			p.mu.Unlock()
			close(ch)
		})
	}
}

func (p *Poller) poll(ctx context.Context, instance string) {
	prev, err := p.Status(ctx, instance)
	if err != nil {
		p.log.Error("failed to load whatsapp state", "instance", instance, "error", err)
		return
	}

	status, err := p.checker.Check(ctx, instance)
	p.observer.WhatsAppPolled(status.State, err)
	if err != nil {
		p.log.Warn("whatsapp status check failed", "instance", instance, "error", err)
		return
	}

	conn := Connection{
		Instance:  instance,
		State:     status.State,
		QRCode:    status.QRCode,
		Polls:     prev.Polls + 1,
		UpdatedAt: p.now().UTC(),
	}

	p.mu.Lock()
	if _, polling := p.entries[instance]; !polling {
		p.mu.Unlock()
		p.log.Debug("dropping poll result for stopped instance", "instance", instance, "state", string(conn.State))
		return
	}
	if err := p.persist(ctx, conn); err != nil {
		p.mu.Unlock()
		p.log.Error("failed to save whatsapp state", "instance", instance, "error", err)
		return
	}
	if conn.State == StateConnected {
		p.removeLocked(instance)
	}
	p.mu.Unlock()

	p.broadcast(conn)
	if conn.State == StateConnected {
		p.log.Info("whatsapp connected", "instance", instance, "polls", conn.Polls)
	}
}

// removeLocked drops the cron entry of instance. p.mu must be held.
func (p *Poller) removeLocked(instance string) {
	if id, ok := p.entries[instance]; ok {
		p.cron.Remove(id)
		delete(p.entries, instance)
	}
}

func (p *Poller) persist(ctx context.Context, conn Connection) error {
	if err := storage.SetJSON(ctx, p.store, connectionKeyPrefix+conn.Instance, conn, 0); err != nil {
		return domain.NewInternalError(err)
	}
	return nil
}

func (p *Poller) broadcast(conn Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs[conn.Instance] {
		select {
		case ch <- conn:
		default:
		}
	}
}
