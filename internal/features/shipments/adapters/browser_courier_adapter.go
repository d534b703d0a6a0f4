package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"order-settlement/internal/core/logger"
	"order-settlement/internal/core/proxy"
	"order-settlement/internal/features/shipments/domain"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// BrowserCourierConfig describes a courier whose tracking is only exposed through its web page.
type BrowserCourierConfig struct {
	// Courier is the courier name routed to this adapter.
	Courier string
	// PageURL is the tracking page, with %s for the tracking number.
	PageURL string
	// XHRPattern matches the request the page issues for the tracking data.
	XHRPattern string
	// Timeout bounds one lookup, browser start included.
	Timeout time.Duration
	// Proxy is used for the browser when enabled.
	Proxy proxy.Settings
}

// BrowserCourierAdapter loads the courier tracking page in a headless browser and
// captures the JSON the page fetches.
type BrowserCourierAdapter struct {
	cfg    BrowserCourierConfig
	logger *zap.Logger
}

// NewBrowserCourierAdapter creates a new BrowserCourierAdapter.
func NewBrowserCourierAdapter(cfg BrowserCourierConfig) *BrowserCourierAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.XHRPattern == "" {
		cfg.XHRPattern = "*/tracking/detail*"
	}
	return &BrowserCourierAdapter{
		cfg:    cfg,
		logger: logger.Named("courier_browser"),
	}
}

// browserTrackingResponse is the payload of the tracking page's XHR.
type browserTrackingResponse struct {
	TrackingNumber string `json:"tracking_number"`
	History        []struct {
		Code        string `json:"code"`
		Date        string `json:"date"`
		Description string `json:"description"`
		City        string `json:"city"`
	} `json:"history"`
}

func (a *BrowserCourierAdapter) pageURL(trackingNumber string) string {
	if strings.Contains(a.cfg.PageURL, "%s") {
		return fmt.Sprintf(a.cfg.PageURL, trackingNumber)
	}
	if strings.HasSuffix(a.cfg.PageURL, "=") {
		return a.cfg.PageURL + trackingNumber
	}
	return fmt.Sprintf("%s?tracking=%s", a.cfg.PageURL, trackingNumber)
}

// GetTrackingHistory opens the tracking page and waits for its tracking XHR.
func (a *BrowserCourierAdapter) GetTrackingHistory(ctx context.Context, _ string, trackingNumber string) (*domain.TrackingHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	proxyAddr, stop, err := a.browserProxy(ctx)
	if err != nil {
		return nil, err
	}
	defer stop()

	a.logger.Debug("Launching browser...",
		zap.Bool("proxy_enabled", a.cfg.Proxy.HasProxy()),
		zap.String("proxy_addr", proxyAddr),
	)

	l := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)
	if proxyAddr != "" {
		l = l.Proxy(proxyAddr)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().Context(ctx).ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	router := page.HijackRequests()
	defer router.MustStop()

	client, err := proxiedClient(proxyAddr)
	if err != nil {
		return nil, err
	}

	done := make(chan []byte, 1)
	err = router.Add(a.cfg.XHRPattern, "", func(h *rod.Hijack) {
		if err := h.LoadResponse(client, true); err != nil {
			a.logger.Error("Failed to load response", zap.Error(err))
			return
		}
		select {
		case done <- []byte(h.Response.Body()):
		default:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to intercept tracking request: %w", err)
	}
	go router.Run()

	if err := page.Navigate(a.pageURL(trackingNumber)); err != nil {
		return nil, fmt.Errorf("failed to open tracking page: %w", err)
	}

	select {
	case body := <-done:
		var resp browserTrackingResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse courier response: %w", err)
		}
		return a.mapResponseToDomain(resp), nil

	case <-ctx.Done():
		return nil, fmt.Errorf("timeout waiting for courier response: %w", ctx.Err())
	}
}

// browserProxy returns the proxy address for the browser. Credentials cannot be
// handed to Chromium, so an authenticated proxy is fronted by a local forwarder.
func (a *BrowserCourierAdapter) browserProxy(ctx context.Context) (string, func(), error) {
	noop := func() {}
	if !a.cfg.Proxy.HasProxy() {
		return "", noop, nil
	}
	if !a.cfg.Proxy.HasCredentials() {
		return a.cfg.Proxy.HostPort(), noop, nil
	}

	forwarder, err := proxy.NewForwardingProxy(a.cfg.Proxy)
	if err != nil {
		return "", noop, fmt.Errorf("failed to create proxy forwarder: %w", err)
	}
	addr, err := forwarder.Start(ctx)
	if err != nil {
		return "", noop, fmt.Errorf("failed to start proxy forwarder: %w", err)
	}
	return addr, func() {
		if err := forwarder.Stop(); err != nil {
			a.logger.Warn("Failed to stop proxy forwarder", zap.Error(err))
		}
	}, nil
}

func proxiedClient(proxyAddr string) (*http.Client, error) {
	if proxyAddr == "" {
		return http.DefaultClient, nil
	}
	proxyURL, err := url.Parse(proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy address %q: %w", proxyAddr, err)
	}
	return &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		Timeout:   30 * time.Second,
	}, nil
}

func (a *BrowserCourierAdapter) mapResponseToDomain(resp browserTrackingResponse) *domain.TrackingHistory {
	history := &domain.TrackingHistory{
		TrackingNumber: resp.TrackingNumber,
		GlobalStatus:   domain.TrackingStatusProcessing,
		History:        make([]domain.TrackingEvent, 0, len(resp.History)),
	}

	// Layout: "2026-10-14 10:50:44"
	const dateLayout = "2006-01-02 15:04:05"

	for _, item := range resp.History {
		date, _ := time.Parse(dateLayout, item.Date)
		history.History = append(history.History, domain.TrackingEvent{
			Date: date,
			Text: item.Description,
			City: item.City,
			Code: item.Code,
		})

		// Codes: PU picked up, TR in transit, DL delivered, RT returned, IN* incidences.
		switch {
		case item.Code == "PU":
			history.GlobalStatus = domain.TrackingStatusOrigin
		case item.Code == "TR" || item.Code == "OD":
			history.GlobalStatus = domain.TrackingStatusProcessing
		case item.Code == "DL":
			history.GlobalStatus = domain.TrackingStatusCompleted
		case item.Code == "RT":
			history.GlobalStatus = domain.TrackingStatusReturn
		case strings.HasPrefix(item.Code, "IN"):
			history.GlobalStatus = domain.TrackingStatusIncidence
		default:
			a.logger.Warn("Unknown courier status code encountered",
				zap.String("courier", a.cfg.Courier),
				zap.String("code", item.Code),
				zap.String("description", item.Description),
			)
		}
	}

	return history
}

// SupportsCourier returns true for the configured courier.
func (a *BrowserCourierAdapter) SupportsCourier(courier string) bool {
	return a.cfg.Courier != "" && strings.EqualFold(courier, a.cfg.Courier)
}
