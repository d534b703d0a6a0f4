package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSellerDirectory_Exists(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/sellers/X":
			w.Write([]byte(`{"id":"X","active":true}`))
		case "/sellers/legacy":
			w.Write([]byte(`{"id":"legacy"}`))
		case "/sellers/banned":
			w.Write([]byte(`{"id":"banned","active":false}`))
		case "/sellers/flaky":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	dir := NewHTTPSellerDirectory(ts.URL + "/")
	ctx := context.Background()

	tests := []struct {
		sellerID string
		want     bool
		wantErr  bool
	}{
		{sellerID: "X", want: true},
		{sellerID: "legacy", want: true},
		{sellerID: "banned", want: false},
		{sellerID: "deleted", want: false},
		{sellerID: "", want: false},
		{sellerID: "flaky", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.sellerID, func(t *testing.T) {
			got, err := dir.Exists(ctx, tt.sellerID)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStaticSellerDirectory(t *testing.T) {
	ok, err := StaticSellerDirectory{}.Exists(context.Background(), "X")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = StaticSellerDirectory{}.Exists(context.Background(), " ")
	require.NoError(t, err)
	assert.False(t, ok)
}
