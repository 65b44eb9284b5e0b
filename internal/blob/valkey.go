package blob

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// ValkeyProvider implements Provider backed by a Valkey/Redis-compatible
// server, for deployments that share client state across sessions.
type ValkeyProvider struct {
	cfg ValkeyConfig
}

// ValkeyConfig holds connection parameters for the Valkey server.
type ValkeyConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
	TLS          bool
}

// NewValkeyProvider creates a Provider using the supplied configuration.
// It performs a ping against the target to fail fast when credentials or
// connectivity are incorrect.
func NewValkeyProvider(cfg ValkeyConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 500 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}

	provider := &ValkeyProvider{cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := provider.ping(ctx); err != nil {
		return nil, err
	}
	return provider, nil
}

// Get fetches bytes by key, returning ErrNotFound when the key is absent.
func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := p.withConn(ctx, func(conn *respConn) error {
		if err := conn.writeCommand("GET", key); err != nil {
			return err
		}
		data, missing, err := conn.readBulk()
		if err != nil {
			return err
		}
		if missing {
			return ErrNotFound
		}
		payload = data
		return nil
	})
	return payload, err
}

// Set stores value under key without expiry.
func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte) error {
	return p.withConn(ctx, func(conn *respConn) error {
		if err := conn.writeCommand("SET", key, string(value)); err != nil {
			return err
		}
		return conn.expectOK("SET")
	})
}

// Del removes a key; deleting an absent key is not an error.
func (p *ValkeyProvider) Del(ctx context.Context, key string) error {
	return p.withConn(ctx, func(conn *respConn) error {
		if err := conn.writeCommand("DEL", key); err != nil {
			return err
		}
		_, _, err := conn.readBulk()
		return err
	})
}

// Close closes the provider (connections are per-call, so this is a no-op).
func (p *ValkeyProvider) Close() error { return nil }

func (p *ValkeyProvider) ping(ctx context.Context) error {
	return p.withConn(ctx, func(conn *respConn) error {
		if err := conn.writeCommand("PING"); err != nil {
			return err
		}
		data, _, err := conn.readBulk()
		if err != nil {
			return err
		}
		if !strings.EqualFold(string(data), "PONG") {
			return fmt.Errorf("unexpected PING response: %s", data)
		}
		return nil
	})
}

func (p *ValkeyProvider) withConn(ctx context.Context, fn func(*respConn) error) error {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := p.once(ctx, fn)
		if err == nil || errors.Is(err, ErrNotFound) {
			return err
		}
		lastErr = err
		if !retryableNetErr(err) || attempt == p.cfg.MaxRetries-1 {
			return err
		}
		time.Sleep(time.Duration(1<<attempt) * 25 * time.Millisecond)
	}
	return lastErr
}

func (p *ValkeyProvider) once(ctx context.Context, fn func(*respConn) error) error {
	conn, err := p.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.close()
	if err := p.authenticate(conn); err != nil {
		return err
	}
	return fn(conn)
}

func (p *ValkeyProvider) dial(ctx context.Context) (*respConn, error) {
	dialer := net.Dialer{Timeout: p.cfg.DialTimeout}
	var (
		nc  net.Conn
		err error
	)
	if p.cfg.TLS {
		host, _, splitErr := net.SplitHostPort(p.cfg.Addr)
		if splitErr != nil {
			host = p.cfg.Addr
		}
		nc, err = tls.DialWithDialer(&dialer, "tcp", p.cfg.Addr, &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host})
	} else {
		nc, err = dialer.DialContext(ctx, "tcp", p.cfg.Addr)
	}
	if err != nil {
		return nil, err
	}
	return &respConn{
		conn:         nc,
		reader:       bufio.NewReader(nc),
		writer:       bufio.NewWriter(nc),
		readTimeout:  p.cfg.ReadTimeout,
		writeTimeout: p.cfg.WriteTimeout,
	}, nil
}

func (p *ValkeyProvider) authenticate(conn *respConn) error {
	if p.cfg.Password != "" {
		args := []string{p.cfg.Password}
		if p.cfg.Username != "" {
			args = []string{p.cfg.Username, p.cfg.Password}
		}
		if err := conn.writeCommand("AUTH", args...); err != nil {
			return err
		}
		if err := conn.expectOK("AUTH"); err != nil {
			return err
		}
	}
	if p.cfg.DB > 0 {
		if err := conn.writeCommand("SELECT", strconv.Itoa(p.cfg.DB)); err != nil {
			return err
		}
		if err := conn.expectOK("SELECT"); err != nil {
			return err
		}
	}
	return nil
}

// respConn wraps a network connection with the subset of RESP needed here.
type respConn struct {
	conn         net.Conn
	reader       *bufio.Reader
	writer       *bufio.Writer
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func (c *respConn) close() {
	_ = c.conn.Close()
}

func (c *respConn) writeCommand(command string, args ...string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.writer, "*%d\r\n", len(args)+1); err != nil {
		return err
	}
	for _, part := range append([]string{command}, args...) {
		if _, err := fmt.Fprintf(c.writer, "$%d\r\n%s\r\n", len(part), part); err != nil {
			return err
		}
	}
	return c.writer.Flush()
}

// readBulk reads one reply, returning missing=true for a RESP nil. Simple
// strings and integers are returned as their textual payload.
func (c *respConn) readBulk() (data []byte, missing bool, err error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return nil, false, err
	}
	prefix, err := c.reader.ReadByte()
	if err != nil {
		return nil, false, err
	}
	line, err := c.readLine()
	if err != nil {
		return nil, false, err
	}
	switch prefix {
	case '+', ':':
		return line, false, nil
	case '-':
		return nil, false, errors.New(string(line))
	case '$':
		size, err := strconv.Atoi(string(line))
		if err != nil {
			return nil, false, err
		}
		if size == -1 {
			return nil, true, nil
		}
		buf := make([]byte, size)
		if _, err := io.ReadFull(c.reader, buf); err != nil {
			return nil, false, err
		}
		// Consume the trailing CRLF.
		if _, err := c.readLine(); err != nil {
			return nil, false, err
		}
		return buf, false, nil
	default:
		return nil, false, fmt.Errorf("unexpected RESP prefix %q", prefix)
	}
}

func (c *respConn) expectOK(command string) error {
	data, _, err := c.readBulk()
	if err != nil {
		return err
	}
	if !strings.EqualFold(string(data), "OK") {
		return fmt.Errorf("unexpected %s response: %s", command, data)
	}
	return nil
}

func (c *respConn) readLine() ([]byte, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return nil, err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return []byte(line), nil
}

func retryableNetErr(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
