package bus

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/orchestrator-core/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang with orchestrator-specific functionality.
//
// It provides connection management, topic schema validation, wildcard
// subscription dispatch, and automatic reconnection with exponential backoff.
// Unlike a raw paho client, reconnection is driven by the Client's own loop
// so the backoff sequence is observable and cleanly cancellable.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions are automatically restored on reconnection.
type Client struct {
	client  pahomqtt.Client
	options *pahomqtt.ClientOptions
	cfg     config.MQTTConfig

	// subscriptions tracks registered patterns for dispatch and for
	// re-subscription after reconnect.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex

	// observers are named connection-status callbacks.
	observers  map[string]func(connected bool)
	observerMu sync.RWMutex

	// backoff owns the reconnect delay sequence.
	backoff *backoff

	// reconnecting guards against concurrent reconnect loops.
	reconnecting bool
	reconnectMu  sync.Mutex

	// Shutdown coordination. done is closed once by Disconnect.
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
}

// subscription holds registration details for one topic pattern.
type subscription struct {
	pattern string
	qos     byte
	handler Handler
}

// New creates a message bus client for the given configuration.
// Call Connect to establish the broker session.
func New(cfg config.MQTTConfig) *Client {
	c := &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
		observers:     make(map[string]func(bool)),
		backoff:       newBackoff(cfg.GetInitialReconnectDelay(), cfg.GetMaxReconnectDelay()),
		done:          make(chan struct{}),
	}

	opts := buildClientOptions(cfg)
	opts.SetDefaultPublishHandler(func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.dispatch(msg.Topic(), msg.Payload(), msg.Qos(), msg.Retained())
	})
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleConnectionLost(err)
	})

	c.options = opts
	c.client = pahomqtt.NewClient(opts)

	return c
}

// Connect establishes a connection to the MQTT broker.
//
// On success the reconnect backoff resets to its base delay and
// connection observers are notified with connected=true (via the
// paho on-connect callback).
//
// Returns:
//   - error: ErrConnectionFailed (wrapped) if the broker is unreachable
//     or the attempt times out
func (c *Client) Connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// Set connected state immediately after successful connection.
	// The OnConnectHandler callback runs asynchronously and may not have
	// executed yet, so we set it here to ensure IsConnected() returns true.
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.backoff.Reset()

	return nil
}

// Disconnect stops the reconnect loop and cleanly tears down the session.
// Connection observers are notified with connected=false.
// Safe to call multiple times.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() {
		close(c.done)

		// Wait for the reconnect loop (if any) to exit before tearing
		// down, so it cannot race a fresh connection attempt.
		c.wg.Wait()

		if c.client.IsConnected() {
			c.client.Disconnect(defaultDisconnectQuiesce)
		}

		c.connMu.Lock()
		c.connected = false
		c.connMu.Unlock()

		c.notifyObservers(false)
	})
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// HealthCheck verifies the broker connection is alive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("bus health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// AddConnectionObserver registers a named callback invoked on every
// connection state change. Re-registering a name replaces the callback.
func (c *Client) AddConnectionObserver(name string, callback func(connected bool)) {
	c.observerMu.Lock()
	c.observers[name] = callback
	c.observerMu.Unlock()
}

// RemoveConnectionObserver removes a connection observer by name.
func (c *Client) RemoveConnectionObserver(name string) {
	c.observerMu.Lock()
	delete(c.observers, name)
	c.observerMu.Unlock()
}

// SetLogger sets a logger for error and event logging.
// If not set, dispatch errors are silently ignored.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// Status is a point-in-time snapshot of the client for diagnostics.
type Status struct {
	Connected      bool     `json:"connected"`
	BrokerHost     string   `json:"broker_host"`
	BrokerPort     int      `json:"broker_port"`
	ClientID       string   `json:"client_id"`
	Subscriptions  []string `json:"subscriptions"`
	ReconnectDelay string   `json:"reconnect_delay"`
}

// GetStatus returns the current client status.
func (c *Client) GetStatus() Status {
	c.subMu.RLock()
	patterns := make([]string, 0, len(c.subscriptions))
	for p := range c.subscriptions {
		patterns = append(patterns, p)
	}
	c.subMu.RUnlock()

	return Status{
		Connected:      c.IsConnected(),
		BrokerHost:     c.cfg.Broker.Host,
		BrokerPort:     c.cfg.Broker.Port,
		ClientID:       c.cfg.Broker.ClientID,
		Subscriptions:  patterns,
		ReconnectDelay: c.backoff.Current().String(),
	}
}

// handleConnect is called by paho when a connection is established,
// on both initial connect and reconnect.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.backoff.Reset()
	c.restoreSubscriptions()
	c.notifyObservers(true)

	c.logInfo("connected to broker",
		"host", c.cfg.Broker.Host,
		"port", c.cfg.Broker.Port,
	)
}

// handleConnectionLost is called by paho on an unexpected disconnect.
// Caller-initiated Disconnect never reaches here.
func (c *Client) handleConnectionLost(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	c.logWarn("connection lost", "error", err)
	c.notifyObservers(false)

	c.startReconnect()
}

// restoreSubscriptions re-subscribes all tracked patterns after reconnect.
// The broker routes everything through the default publish handler, which
// owns pattern dispatch, so no per-subscription callback is registered.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subscriptions {
		token := c.client.Subscribe(sub.pattern, sub.qos, nil)
		if !token.WaitTimeout(defaultPublishTimeout) || token.Error() != nil {
			c.logWarn("failed to restore subscription", "pattern", sub.pattern, "error", token.Error())
		}
	}
}

// notifyObservers invokes every connection observer with the new state.
// A panicking observer must not take down the connection callbacks.
func (c *Client) notifyObservers(connected bool) {
	c.observerMu.RLock()
	callbacks := make([]func(bool), 0, len(c.observers))
	for _, cb := range c.observers {
		callbacks = append(callbacks, cb)
	}
	c.observerMu.RUnlock()

	for _, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logError("connection observer panic recovered", "panic", r)
				}
			}()
			cb(connected)
		}()
	}
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

func (c *Client) logError(msg string, args ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Error(msg, args...)
	}
}

func (c *Client) logWarn(msg string, args ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Warn(msg, args...)
	}
}

func (c *Client) logInfo(msg string, args ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Info(msg, args...)
	}
}
