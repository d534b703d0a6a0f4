package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"order-settlement/internal/core/httpclient"
	"order-settlement/internal/core/logger"
	"order-settlement/internal/features/shipments/domain"

	"go.uber.org/zap"
)

// RESTCourierAdapter reads shipment history from a courier aggregator's JSON API.
type RESTCourierAdapter struct {
	baseURL  string
	couriers map[string]bool
	client   *http.Client
	logger   *zap.Logger
}

// NewRESTCourierAdapter creates an adapter for the given couriers served by the API at baseURL.
func NewRESTCourierAdapter(baseURL string, couriers []string) *RESTCourierAdapter {
	supported := make(map[string]bool, len(couriers))
	for _, c := range couriers {
		supported[strings.ToLower(c)] = true
	}
	return &RESTCourierAdapter{
		baseURL:  strings.TrimRight(baseURL, "/"),
		couriers: supported,
		client:   httpclient.NewClient(15 * time.Second),
		logger:   logger.Named("courier_api"),
	}
}

type restTrackingResponse struct {
	TrackingNumber string `json:"trackingNumber"`
	Status         string `json:"status"`
	Events         []struct {
		Timestamp   time.Time `json:"timestamp"`
		Description string    `json:"description"`
		Location    string    `json:"location"`
		Code        string    `json:"code"`
	} `json:"events"`
}

// GetTrackingHistory calls GET {base}/couriers/{courier}/shipments/{trackingNumber}.
func (a *RESTCourierAdapter) GetTrackingHistory(ctx context.Context, courier, trackingNumber string) (*domain.TrackingHistory, error) {
	endpoint := fmt.Sprintf("%s/couriers/%s/shipments/%s", a.baseURL, url.PathEscape(courier), url.PathEscape(trackingNumber))

	var resp restTrackingResponse
	found, err := httpclient.GetJSON(ctx, a.client, endpoint, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("courier api: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s has no shipment %s", domain.ErrTrackingUnavailable, courier, trackingNumber)
	}

	return a.mapResponseToDomain(resp), nil
}

func (a *RESTCourierAdapter) mapResponseToDomain(resp restTrackingResponse) *domain.TrackingHistory {
	history := &domain.TrackingHistory{
		TrackingNumber: resp.TrackingNumber,
		GlobalStatus:   domain.TrackingStatusProcessing,
		History:        make([]domain.TrackingEvent, 0, len(resp.Events)),
	}

	for _, e := range resp.Events {
		history.History = append(history.History, domain.TrackingEvent{
			Date: e.Timestamp,
			Text: e.Description,
			City: e.Location,
			Code: e.Code,
		})
	}

	switch strings.ToLower(resp.Status) {
	case "picked_up", "at_origin":
		history.GlobalStatus = domain.TrackingStatusOrigin
	case "in_transit", "out_for_delivery", "":
		history.GlobalStatus = domain.TrackingStatusProcessing
	case "delivered":
		history.GlobalStatus = domain.TrackingStatusCompleted
	case "returned", "returning":
		history.GlobalStatus = domain.TrackingStatusReturn
	case "exception", "failed_attempt":
		history.GlobalStatus = domain.TrackingStatusIncidence
	default:
		a.logger.Warn("Unknown courier status encountered", zap.String("status", resp.Status))
	}

	return history
}

// SupportsCourier reports whether the courier was configured for this API.
func (a *RESTCourierAdapter) SupportsCourier(courier string) bool {
	return a.couriers[strings.ToLower(courier)]
}
