package grpcclient

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/aurelia-chain/aurelia-go/aggregator"
	"github.com/aurelia-chain/aurelia-go/model/aurelia"
)

// DefaultMaxMsgSize bounds request and response sizes on authority
// connections.
const DefaultMaxMsgSize = 16 * 1024 * 1024 // 16 MiB

// Manager caches one gRPC client connection per authority address. A
// connection is dialed lazily on first use and reused by every epoch's pool
// that contains the same address; gRPC reconnects transparently underneath.
type Manager struct {
	log        zerolog.Logger
	maxMsgSize int

	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

// NewManager creates a connection manager.
func NewManager(log zerolog.Logger, maxMsgSize int) *Manager {
	if maxMsgSize == 0 {
		maxMsgSize = DefaultMaxMsgSize
	}
	return &Manager{
		log:        log.With().Str("component", "grpc_manager").Logger(),
		maxMsgSize: maxMsgSize,
		conns:      make(map[string]*grpc.ClientConn),
	}
}

// GetConnection returns the cached connection for the address, dialing it if
// needed. Dialing is non-blocking; connection establishment happens on the
// first call.
func (m *Manager) GetConnection(address string) (*grpc.ClientConn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conn, ok := m.conns[address]; ok {
		return conn, nil
	}

	keepaliveParams := keepalive.ClientParameters{
		Time:    10 * time.Second,
		Timeout: 5 * time.Second,
	}
	conn, err := grpc.Dial(
		address,
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(m.maxMsgSize),
			grpc.MaxCallSendMsgSize(m.maxMsgSize),
			grpc.ForceCodec(Codec{}),
		),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepaliveParams),
	)
	if err != nil {
		return nil, fmt.Errorf("could not dial authority at %s: %w", address, err)
	}

	m.log.Debug().Str("address", address).Msg("dialed authority connection")
	m.conns[address] = conn
	return conn, nil
}

// Close closes all cached connections. In-flight requests fail.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for address, conn := range m.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("could not close connection to %s: %w", address, err)
		}
		delete(m.conns, address)
	}
	return firstErr
}

// Dialer returns an aggregator dialer backed by this manager's connection
// cache.
func (m *Manager) Dialer() aggregator.Dialer {
	return func(identity *aurelia.Identity) (aggregator.AuthorityClient, error) {
		conn, err := m.GetConnection(identity.Address)
		if err != nil {
			return nil, err
		}
		return NewClient(conn), nil
	}
}
