package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"order-settlement/internal/core/httpclient"
)

// HTTPSellerDirectory looks sellers up in the user service.
type HTTPSellerDirectory struct {
	client  *http.Client
	baseURL string
}

// NewHTTPSellerDirectory creates a directory backed by GET {baseURL}/sellers/{id}.
func NewHTTPSellerDirectory(baseURL string) *HTTPSellerDirectory {
	return &HTTPSellerDirectory{
		client:  httpclient.NewClient(5 * time.Second),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type sellerResponse struct {
	ID     string `json:"id"`
	Active *bool  `json:"active"`
}

// Exists reports whether the seller account exists and is not deactivated.
func (d *HTTPSellerDirectory) Exists(ctx context.Context, sellerID string) (bool, error) {
	if strings.TrimSpace(sellerID) == "" {
		return false, nil
	}

	var seller sellerResponse
	found, err := httpclient.GetJSON(ctx, d.client, d.baseURL+"/sellers/"+url.PathEscape(sellerID), nil, &seller)
	if err != nil {
		return false, fmt.Errorf("seller directory lookup for %s: %w", sellerID, err)
	}
	if !found {
		return false, nil
	}
	return seller.Active == nil || *seller.Active, nil
}

// StaticSellerDirectory trusts every non-empty seller id. Used when no directory URL is configured.
type StaticSellerDirectory struct{}

// Exists reports whether sellerID is non-empty.
func (StaticSellerDirectory) Exists(_ context.Context, sellerID string) (bool, error) {
	return strings.TrimSpace(sellerID) != "", nil
}
