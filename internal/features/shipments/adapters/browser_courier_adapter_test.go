package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"order-settlement/internal/core/proxy"
	"order-settlement/internal/features/shipments/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) browserTrackingResponse {
	t.Helper()
	var resp browserTrackingResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return resp
}

func TestBrowserCourierAdapter_mapResponseToDomain(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus domain.TrackingStatus
		wantEvents int
	}{
		{
			name: "Delivered",
			body: `{"tracking_number":"BK-100","history":[
				{"code":"PU","date":"2026-10-10 10:50:44","description":"Picked up","city":"Bogota"},
				{"code":"TR","date":"2026-10-11 08:00:00","description":"In transit","city":"Bogota"},
				{"code":"DL","date":"2026-10-12 13:58:00","description":"Delivered","city":"Medellin"}]}`,
			wantStatus: domain.TrackingStatusCompleted,
			wantEvents: 3,
		},
		{
			name:       "Returned",
			body:       `{"history":[{"code":"RT","date":"2026-10-10 18:05:12","description":"Returned to sender"}]}`,
			wantStatus: domain.TrackingStatusReturn,
			wantEvents: 1,
		},
		{
			name: "Incidence variations",
			body: `{"history":[
				{"code":"IN01","date":"2026-10-10 08:39:40","description":"Recipient absent"},
				{"code":"IN17","date":"2026-10-11 08:39:40","description":"Address not found"}]}`,
			wantStatus: domain.TrackingStatusIncidence,
			wantEvents: 2,
		},
		{
			name:       "Unknown code keeps previous status",
			body:       `{"history":[{"code":"PU","date":"2026-10-10 08:00:00"},{"code":"ZZ","date":"2026-10-10 09:00:00"}]}`,
			wantStatus: domain.TrackingStatusOrigin,
			wantEvents: 2,
		},
		{
			name:       "Empty history",
			body:       `{"history":[]}`,
			wantStatus: domain.TrackingStatusProcessing,
			wantEvents: 0,
		},
	}

	a := NewBrowserCourierAdapter(BrowserCourierConfig{Courier: "swiftpost"})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := a.mapResponseToDomain(decode(t, tt.body))
			assert.Equal(t, tt.wantStatus, history.GlobalStatus)
			assert.Len(t, history.History, tt.wantEvents)
		})
	}
}

func TestBrowserCourierAdapter_EventFields(t *testing.T) {
	a := NewBrowserCourierAdapter(BrowserCourierConfig{Courier: "swiftpost"})
	history := a.mapResponseToDomain(decode(t, `{"tracking_number":"BK-100","history":[
		{"code":"PU","date":"2026-10-10 10:50:44","description":"Picked up","city":"Bogota"}]}`))

	require.Len(t, history.History, 1)
	assert.Equal(t, "BK-100", history.TrackingNumber)
	assert.Equal(t, time.Date(2026, 10, 10, 10, 50, 44, 0, time.UTC), history.History[0].Date)
	assert.Equal(t, "Picked up", history.History[0].Text)
	assert.Equal(t, "Bogota", history.History[0].City)
	assert.Equal(t, "PU", history.History[0].Code)
}

func TestBrowserCourierAdapter_pageURL(t *testing.T) {
	tests := []struct {
		pageURL string
		want    string
	}{
		{pageURL: "https://courier.example/track/%s", want: "https://courier.example/track/BK-1"},
		{pageURL: "https://courier.example/track?guide=", want: "https://courier.example/track?guide=BK-1"},
		{pageURL: "https://courier.example/track", want: "https://courier.example/track?tracking=BK-1"},
	}

	for _, tt := range tests {
		a := NewBrowserCourierAdapter(BrowserCourierConfig{Courier: "swiftpost", PageURL: tt.pageURL})
		assert.Equal(t, tt.want, a.pageURL("BK-1"))
	}
}

func TestBrowserCourierAdapter_SupportsCourier(t *testing.T) {
	a := NewBrowserCourierAdapter(BrowserCourierConfig{Courier: "swiftpost"})
	assert.True(t, a.SupportsCourier("swiftpost"))
	assert.True(t, a.SupportsCourier("SwiftPost"))
	assert.False(t, a.SupportsCourier("other"))
	assert.False(t, NewBrowserCourierAdapter(BrowserCourierConfig{}).SupportsCourier(""))
}

func TestBrowserCourierAdapter_browserProxy(t *testing.T) {
	t.Run("No proxy", func(t *testing.T) {
		a := NewBrowserCourierAdapter(BrowserCourierConfig{Courier: "swiftpost"})
		addr, stop, err := a.browserProxy(context.Background())
		require.NoError(t, err)
		defer stop()
		assert.Empty(t, addr)
	})

	t.Run("Proxy without credentials", func(t *testing.T) {
		a := NewBrowserCourierAdapter(BrowserCourierConfig{
			Courier: "swiftpost",
			Proxy:   proxy.Settings{Enabled: true, Hostname: "proxy.local", Port: 3128},
		})
		addr, stop, err := a.browserProxy(context.Background())
		require.NoError(t, err)
		defer stop()
		assert.Equal(t, "http://proxy.local:3128", addr)
	})

	t.Run("Proxy with credentials starts a local forwarder", func(t *testing.T) {
		a := NewBrowserCourierAdapter(BrowserCourierConfig{
			Courier: "swiftpost",
			Proxy:   proxy.Settings{Enabled: true, Hostname: "proxy.local", Port: 3128, Username: "user", Password: "pass"},
		})
		addr, stop, err := a.browserProxy(context.Background())
		require.NoError(t, err)
		defer stop()
		assert.True(t, strings.HasPrefix(addr, "http://127.0.0.1:"))
	})
}

func TestProxiedClient(t *testing.T) {
	client, err := proxiedClient("")
	require.NoError(t, err)
	assert.Same(t, http.DefaultClient, client)

	client, err = proxiedClient("http://127.0.0.1:18080")
	require.NoError(t, err)
	require.NotNil(t, client.Transport)

	req, _ := http.NewRequest(http.MethodGet, "https://courier.example/track", nil)
	proxyURL, err := client.Transport.(*http.Transport).Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:18080", proxyURL.Host)

	_, err = proxiedClient("://bad")
	assert.Error(t, err)
}
