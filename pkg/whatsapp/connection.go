// Package whatsapp tracks the connection state of WhatsApp instances. The
// actual provider is behind StatusChecker; MockChecker stands in for it.
package whatsapp

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is the connection state of an instance.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateQRCode       State = "qrcode"
	StateConnected    State = "connected"
)

// Connection is the last observed state of an instance.
type Connection struct {
	Instance  string    `json:"instance"`
	State     State     `json:"state"`
	QRCode    string    `json:"qr_code,omitempty"`
	Polls     int       `json:"polls"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status is what a StatusChecker reports for one poll.
type Status struct {
	State  State
	QRCode string
}

// StatusChecker asks the provider for the state of an instance.
type StatusChecker interface {
	Check(ctx context.Context, instance string) (Status, error)
}

// Resetter is implemented by checkers that keep per-instance state.
type Resetter interface {
	Reset(instance string)
}

// MockChecker reports a QR code for the first ConnectAfter-1 polls of an
// instance and connected from then on.
type MockChecker struct {
	ConnectAfter int

	mu    sync.Mutex
	polls map[string]int
}

// NewMockChecker creates a mock that connects on poll number connectAfter.
func NewMockChecker(connectAfter int) *MockChecker {
	return &MockChecker{ConnectAfter: max(connectAfter, 1), polls: make(map[string]int)}
}

func (m *MockChecker) Check(ctx context.Context, instance string) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.polls[instance]++
	n := m.polls[instance]
	if n >= m.ConnectAfter {
		return Status{State: StateConnected}, nil
	}
	return Status{State: StateQRCode, QRCode: fmt.Sprintf("zapvenda-mock:%s:%d", instance, n)}, nil
}

func (m *MockChecker) Reset(instance string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.polls, instance)
}
