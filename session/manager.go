package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	logger "github.com/multiversx/mx-chain-logger-go"
	"golang.org/x/time/rate"

	"github.com/patrick-commits/dark-site-metering/common"
)

var log = logger.GetOrCreate("session")

// The legacy generation authenticates once against the session endpoint and
// carries the issued cookie afterwards; the newer generations reuse the basic
// pair on every request.
const sessionInfoPath = "/api/nutanix/v1/users/session_info"

const sessionLifetime = 15 * time.Minute

// Args defines the session manager arguments
type Args struct {
	BaseURL     string
	Username    string
	Password    string
	Client      *http.Client
	Limiter     *rate.Limiter
	MaxFailures int
}

// manager owns credential state and the reauthentication policy for the remote
// control plane. It is the only component allowed to mutate the credential.
type manager struct {
	baseURL     string
	username    string
	password    string
	client      *http.Client
	limiter     *rate.Limiter
	maxFailures int

	mut      sync.Mutex
	cred     *common.Credential
	failures int
	reauths  int
}

// NewManager creates a new session manager instance
func NewManager(args Args) (*manager, error) {
	if len(args.BaseURL) == 0 {
		return nil, errors.New("empty base URL")
	}
	if args.Client == nil {
		return nil, errors.New("nil http client")
	}
	if args.Limiter == nil {
		return nil, errors.New("nil rate limiter")
	}
	if args.MaxFailures <= 0 {
		return nil, errors.New("invalid max failures value")
	}

	return &manager{
		baseURL:     args.BaseURL,
		username:    args.Username,
		password:    args.Password,
		client:      args.Client,
		limiter:     args.Limiter,
		maxFailures: args.MaxFailures,
	}, nil
}

// Acquire returns a usable credential, transparently re-authenticating when the
// held one is missing, expired or was invalidated by a rejected data call.
// After MaxFailures consecutive failed attempts it returns ErrAuthExhausted and
// the caller must mark every session-dependent kind Failed for the cycle.
func (m *manager) Acquire(ctx context.Context) (*common.Credential, error) {
	m.mut.Lock()
	defer m.mut.Unlock()

	if m.cred != nil && time.Now().Before(m.cred.ExpiresAt) {
		credCopy := *m.cred
		return &credCopy, nil
	}

	for {
		err := m.authenticate(ctx)
		if err == nil {
			m.failures = 0
			credCopy := *m.cred
			return &credCopy, nil
		}

		m.failures++
		log.Warn("authentication attempt failed", "attempt", m.failures, "error", err)

		if m.failures >= m.maxFailures {
			m.failures = 0
			m.cred = nil
			return nil, fmt.Errorf("%w after %d attempts: %v", common.ErrAuthExhausted, m.maxFailures, err)
		}

		m.reauths++
	}
}

// Invalidate forces re-authentication on the next Acquire call
func (m *manager) Invalidate(reason string) {
	m.mut.Lock()
	defer m.mut.Unlock()

	log.Debug("session invalidated", "reason", reason)
	m.cred = nil
}

// Reauths returns the number of recorded reauthentication attempts
func (m *manager) Reauths() int {
	m.mut.Lock()
	defer m.mut.Unlock()

	return m.reauths
}

// authenticate performs the session-info call. It is itself a network call and
// goes through the shared rate limiter like any data call.
func (m *manager) authenticate(ctx context.Context) error {
	err := m.limiter.Wait(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+sessionInfoPath, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(m.username, m.password)
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: session endpoint rejected the credential pair", common.ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &common.StatusError{Endpoint: sessionInfoPath, Code: resp.StatusCode}
	}

	cookie := ""
	for _, c := range resp.Cookies() {
		if len(c.Value) > 0 {
			cookie = c.Name + "=" + c.Value
			break
		}
	}

	m.cred = &common.Credential{
		Username:  m.username,
		Password:  m.password,
		Cookie:    cookie,
		ExpiresAt: time.Now().Add(sessionLifetime),
	}

	log.Debug("session established", "has cookie", len(cookie) > 0)

	return nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (m *manager) IsInterfaceNil() bool {
	return m == nil
}
