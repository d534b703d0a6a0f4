package proxy

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"order-settlement/internal/core/logger"

	"github.com/elazarl/goproxy"
	"go.uber.org/zap"
)

// ForwardingProxy is a local, unauthenticated proxy that tunnels every connection
// through an upstream proxy requiring credentials. Chromium cannot pass proxy
// credentials on the command line, so the browser is pointed at this one instead.
type ForwardingProxy struct {
	upstream  Settings
	server    *http.Server
	listener  net.Listener
	localPort int
	logger    *zap.Logger
	mu        sync.Mutex
	running   bool
}

// NewForwardingProxy creates a forwarder for the given upstream.
func NewForwardingProxy(upstream Settings) (*ForwardingProxy, error) {
	if !upstream.HasProxy() {
		return nil, errors.New("upstream proxy is not configured")
	}
	return &ForwardingProxy{
		upstream: upstream,
		logger:   logger.Named("proxy"),
	}, nil
}

func (fp *ForwardingProxy) authorization() string {
	if fp.upstream.Username == "" {
		return ""
	}
	credentials := fp.upstream.Username + ":" + fp.upstream.Password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials))
}

// dial opens a CONNECT tunnel to addr through the upstream proxy.
func (fp *ForwardingProxy) dial(network, addr string) (net.Conn, error) {
	upstreamHost := fmt.Sprintf("%s:%d", fp.upstream.Hostname, fp.upstream.Port)

	conn, err := net.DialTimeout("tcp", upstreamHost, 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to upstream proxy %s: %w", upstreamHost, err)
	}

	connectReq := fmt.Sprintf("CONNECT %s HTTP/1.1\r\nHost: %s\r\n", addr, addr)
	if auth := fp.authorization(); auth != "" {
		connectReq += fmt.Sprintf("Proxy-Authorization: %s\r\n", auth)
	}
	connectReq += "\r\n"

	if _, err := conn.Write([]byte(connectReq)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send CONNECT request: %w", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read CONNECT response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		conn.Close()
		fp.logger.Error("Upstream proxy rejected CONNECT",
			zap.Int("status", resp.StatusCode),
			zap.String("target", addr),
		)
		return nil, fmt.Errorf("upstream proxy CONNECT failed with status: %d", resp.StatusCode)
	}

	fp.logger.Debug("CONNECT tunnel established", zap.String("network", network), zap.String("target", addr))
	return conn, nil
}

// Start listens on a random loopback port and returns the address to hand to the browser.
func (fp *ForwardingProxy) Start(_ context.Context) (string, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if fp.running {
		return fp.LocalAddr(), nil
	}

	p := goproxy.NewProxyHttpServer()
	p.ConnectDial = fp.dial
	p.Tr = &http.Transport{Dial: fp.dial}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to find available port: %w", err)
	}
	fp.listener = listener
	fp.localPort = listener.Addr().(*net.TCPAddr).Port
	fp.server = &http.Server{Handler: p}

	go func() {
		if err := fp.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fp.logger.Error("Local proxy server error", zap.Error(err))
		}
	}()

	fp.running = true
	fp.logger.Debug("Local proxy forwarder started",
		zap.String("local_addr", fp.LocalAddr()),
		zap.String("upstream", fp.upstream.Hostname),
	)
	return fp.LocalAddr(), nil
}

// Stop shuts the local proxy down.
func (fp *ForwardingProxy) Stop() error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if !fp.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fp.running = false
	if err := fp.server.Shutdown(ctx); err != nil {
		fp.listener.Close()
		return err
	}
	return nil
}

// LocalAddr returns the forwarder address as "http://127.0.0.1:<port>".
func (fp *ForwardingProxy) LocalAddr() string {
	return fmt.Sprintf("http://127.0.0.1:%d", fp.localPort)
}

// IsRunning returns whether the proxy server is currently running.
func (fp *ForwardingProxy) IsRunning() bool {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.running
}
