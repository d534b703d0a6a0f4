package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"order-settlement/internal/core/identity"
	"order-settlement/internal/features/orders/domain"
	payoutsdomain "order-settlement/internal/features/payouts/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderRepository is a mock implementation of ports.OrderRepository.
// GetByID accepts either an order or a func returning a fresh order per call.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	switch v := args.Get(0).(type) {
	case func() *domain.Order:
		return v(), args.Error(1)
	case *domain.Order:
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) AppendHistory(ctx context.Context, orderID string, change domain.StatusChange) error {
	return m.Called(ctx, orderID, change).Error(0)
}

func (m *MockOrderRepository) History(ctx context.Context, orderID string) ([]domain.StatusChange, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StatusChange), args.Error(1)
}

// MockRefundIssuer is a mock implementation of ports.RefundIssuer.
type MockRefundIssuer struct {
	mock.Mock
}

func (m *MockRefundIssuer) Issue(ctx context.Context, order *domain.Order, amount decimal.Decimal, reason string, actor identity.Actor, markRefunded bool) error {
	return m.Called(ctx, order, amount, reason, actor, markRefunded).Error(0)
}

// MockSettler is a mock implementation of ports.Settler.
type MockSettler struct {
	mock.Mock
}

func (m *MockSettler) SettleDelivery(ctx context.Context, order *domain.Order) (int, error) {
	args := m.Called(ctx, order)
	return args.Int(0), args.Error(1)
}

func (m *MockSettler) InvalidateSummaries(ctx context.Context, orderID string) {
	m.Called(ctx, orderID)
}

// MockStockRestorer is a mock implementation of ports.StockRestorer.
type MockStockRestorer struct {
	mock.Mock
}

func (m *MockStockRestorer) EnqueueStockRestoration(ctx context.Context, order *domain.Order, reason string) error {
	return m.Called(ctx, order, reason).Error(0)
}

func (m *MockStockRestorer) Relay(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// passthroughTx runs the unit of work without a database.
type passthroughTx struct {
	calls int
}

func (p *passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

type fixture struct {
	repo    *MockOrderRepository
	refunds *MockRefundIssuer
	settler *MockSettler
	stock   *MockStockRestorer
	tx      *passthroughTx
	svc     *OrderService
}

func newFixture() *fixture {
	f := &fixture{
		repo:    new(MockOrderRepository),
		refunds: new(MockRefundIssuer),
		settler: new(MockSettler),
		stock:   new(MockStockRestorer),
		tx:      &passthroughTx{},
	}
	f.svc = NewOrderService(f.repo, NewOrderWriter(f.repo, f.tx, 3), f.refunds, f.settler, f.stock)
	return f
}

var (
	customer = identity.Actor{ID: "buyer-1", Role: identity.RoleCustomer, Name: "Meera"}
	admin    = identity.Actor{ID: "admin-1", Role: identity.RoleAdmin, Name: "Ops"}
)

func sampleOrder(status domain.OrderStatus) func() *domain.Order {
	return func() *domain.Order {
		return &domain.Order{
			ID:      "order-1",
			BuyerID: customer.ID,
			Items: []domain.Item{
				{BookID: "b-1", SellerID: "X", UnitPrice: decimal.NewFromInt(800), Quantity: 1},
				{BookID: "b-2", SellerID: "Y", UnitPrice: decimal.NewFromInt(200), Quantity: 1},
			},
			Subtotal:       decimal.NewFromInt(1000),
			ShippingCost:   decimal.Zero,
			Tax:            decimal.Zero,
			CouponDiscount: decimal.Zero,
			Total:          decimal.NewFromInt(1000),
			Status:         status,
			PaymentStatus:  domain.PaymentStatusPaid,
			RefundedAmount: decimal.Zero,
			Version:        4,
		}
	}
}

func TestOrderService_PlaceOrder(t *testing.T) {
	f := newFixture()
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil)

	order, err := f.svc.PlaceOrder(context.Background(), domain.PlaceOrderInput{
		Buyer: customer,
		Items: []domain.Item{{BookID: "b-1", SellerID: "X", UnitPrice: decimal.NewFromInt(250), Quantity: 2}},
	})

	require.NoError(t, err)
	assert.Equal(t, "500", order.Total.String())
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	f.repo.AssertExpectations(t)
}

func TestOrderService_PlaceOrder_Invalid(t *testing.T) {
	f := newFixture()

	_, err := f.svc.PlaceOrder(context.Background(), domain.PlaceOrderInput{Buyer: customer})

	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderService_GetOrder_Visibility(t *testing.T) {
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, "order-1").Return(sampleOrder(domain.OrderStatusPending), nil)

	_, err := f.svc.GetOrder(context.Background(), "order-1", identity.Actor{ID: "other", Role: identity.RoleCustomer})
	assert.ErrorIs(t, err, domain.ErrNotOrderOwner)

	order, err := f.svc.GetOrder(context.Background(), "order-1", identity.Actor{ID: "Y", Role: identity.RoleSeller})
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)

	_, err = f.svc.GetOrder(context.Background(), "order-1", identity.Actor{ID: "Z", Role: identity.RoleSeller})
	assert.ErrorIs(t, err, domain.ErrNotOrderOwner)
}

func TestOrderService_CustomerCancelPendingOrder(t *testing.T) {
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, "order-1").Return(sampleOrder(domain.OrderStatusPending), nil)
	f.refunds.On("Issue", mock.Anything, mock.AnythingOfType("*domain.Order"), mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(1000))
	}), "duplicate purchase", customer, false).
		Run(func(args mock.Arguments) {
			order := args.Get(1).(*domain.Order)
			order.RefundedAmount = args.Get(2).(decimal.Decimal)
			order.PaymentStatus = domain.PaymentStatusRefunded
		}).Return(nil)
	f.stock.On("EnqueueStockRestoration", mock.Anything, mock.AnythingOfType("*domain.Order"), "duplicate purchase").Return(nil)
	f.stock.On("Relay", mock.Anything).Return(nil)
	f.repo.On("AppendHistory", mock.Anything, "order-1", mock.MatchedBy(func(c domain.StatusChange) bool {
		return c.Status == domain.OrderStatusCancelled && c.ActorID == customer.ID
	})).Return(nil)
	f.repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil)

	order, err := f.svc.Cancel(context.Background(), "order-1", customer, "duplicate purchase", "", nil)

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
	assert.Equal(t, domain.PaymentStatusRefunded, order.PaymentStatus)
	assert.True(t, order.RefundedAmount.Equal(order.Total))
	f.repo.AssertExpectations(t)
	f.refunds.AssertExpectations(t)
	f.stock.AssertExpectations(t)
}

func TestOrderService_CancelRelayFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, "order-1").Return(sampleOrder(domain.OrderStatusConfirmed), nil)
	f.refunds.On("Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, false).Return(nil)
	f.stock.On("EnqueueStockRestoration", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.stock.On("Relay", mock.Anything).Return(errors.New("broker down"))
	f.repo.On("AppendHistory", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	order, err := f.svc.Cancel(context.Background(), "order-1", admin, "", "", nil)

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
}

func TestOrderService_CustomerCancelShippedOrder(t *testing.T) {
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, "order-1").Return(sampleOrder(domain.OrderStatusShipped), nil)

	_, err := f.svc.Cancel(context.Background(), "order-1", customer, "", "", nil)

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.refunds.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_DeliverWithoutTracking(t *testing.T) {
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, "order-1").Return(sampleOrder(domain.OrderStatusShipped), nil)

	_, err := f.svc.Transition(context.Background(), "order-1", domain.TransitionRequest{
		Target: domain.OrderStatusDelivered,
		Actor:  admin,
	}, nil)

	assert.ErrorIs(t, err, domain.ErrMissingTrackingNumber)
	f.settler.AssertNotCalled(t, "SettleDelivery", mock.Anything, mock.Anything)
}

func TestOrderService_DeliverSettles(t *testing.T) {
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, "order-1").Return(func() *domain.Order {
		o := sampleOrder(domain.OrderStatusShipped)()
		o.TrackingNumber = "TRK-1"
		return o
	}, nil)
	f.settler.On("SettleDelivery", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
		return o.Status == domain.OrderStatusDelivered
	})).Return(2, nil)
	committed := false
	f.repo.On("AppendHistory", mock.Anything, "order-1", mock.Anything).Return(nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Run(func(mock.Arguments) { committed = true }).Return(nil)
	f.settler.On("InvalidateSummaries", mock.Anything, "order-1").Run(func(mock.Arguments) {
		assert.True(t, committed, "summaries invalidated before the order was saved")
	}).Return()

	order, err := f.svc.Transition(context.Background(), "order-1", domain.TransitionRequest{
		Target: domain.OrderStatusDelivered,
		Actor:  admin,
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, order.Status)
	f.settler.AssertExpectations(t)
}

func TestOrderService_DeliverSettlementFailureAborts(t *testing.T) {
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, "order-1").Return(func() *domain.Order {
		o := sampleOrder(domain.OrderStatusShipped)()
		o.TrackingNumber = "TRK-1"
		return o
	}, nil)
	f.settler.On("SettleDelivery", mock.Anything, mock.Anything).Return(0, errors.New("db down"))

	_, err := f.svc.Transition(context.Background(), "order-1", domain.TransitionRequest{
		Target: domain.OrderStatusDelivered,
		Actor:  admin,
	}, nil)

	require.Error(t, err)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.settler.AssertNotCalled(t, "InvalidateSummaries", mock.Anything, mock.Anything)
}

func TestOrderService_DeliverAlreadySettledIsInformational(t *testing.T) {
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, "order-1").Return(func() *domain.Order {
		o := sampleOrder(domain.OrderStatusShipped)()
		o.TrackingNumber = "TRK-1"
		return o
	}, nil)
	f.settler.On("SettleDelivery", mock.Anything, mock.Anything).Return(0, payoutsdomain.ErrAlreadySettled)
	f.settler.On("InvalidateSummaries", mock.Anything, "order-1").Return()
	f.repo.On("AppendHistory", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Transition(context.Background(), "order-1", domain.TransitionRequest{
		Target: domain.OrderStatusDelivered,
		Actor:  admin,
	}, nil)

	require.NoError(t, err)
}

func TestOrderService_NoOpTransition(t *testing.T) {
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, "order-1").Return(sampleOrder(domain.OrderStatusProcessing), nil)

	order, err := f.svc.Transition(context.Background(), "order-1", domain.TransitionRequest{
		Target: domain.OrderStatusProcessing,
		Actor:  admin,
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(4), order.Version)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "AppendHistory", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_PinnedVersionMismatch(t *testing.T) {
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, "order-1").Return(sampleOrder(domain.OrderStatusPending), nil)

	stale := int64(3)
	_, err := f.svc.Transition(context.Background(), "order-1", domain.TransitionRequest{
		Target: domain.OrderStatusConfirmed,
		Actor:  admin,
	}, &stale)

	assert.ErrorIs(t, err, domain.ErrStaleOrderVersion)
	assert.Equal(t, 1, f.tx.calls)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestOrderService_PinnedVersionConflictNotRetried(t *testing.T) {
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, "order-1").Return(sampleOrder(domain.OrderStatusPending), nil)
	f.repo.On("AppendHistory", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(domain.ErrStaleOrderVersion)

	version := int64(4)
	_, err := f.svc.Transition(context.Background(), "order-1", domain.TransitionRequest{
		Target: domain.OrderStatusConfirmed,
		Actor:  admin,
	}, &version)

	assert.ErrorIs(t, err, domain.ErrStaleOrderVersion)
	assert.Equal(t, 1, f.tx.calls)
}

func TestOrderService_RetryAbsorbsConflict(t *testing.T) {
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, "order-1").Return(sampleOrder(domain.OrderStatusPending), nil)
	f.repo.On("AppendHistory", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(domain.ErrStaleOrderVersion).Once()
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil).Once()

	order, err := f.svc.Transition(context.Background(), "order-1", domain.TransitionRequest{
		Target: domain.OrderStatusConfirmed,
		Actor:  admin,
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.Equal(t, 2, f.tx.calls)
	f.repo.AssertNumberOfCalls(t, "GetByID", 2)
}

func TestOrderService_RetryGivesUp(t *testing.T) {
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, "order-1").Return(sampleOrder(domain.OrderStatusPending), nil)
	f.repo.On("AppendHistory", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(domain.ErrStaleOrderVersion)

	_, err := f.svc.Transition(context.Background(), "order-1", domain.TransitionRequest{
		Target: domain.OrderStatusConfirmed,
		Actor:  admin,
	}, nil)

	assert.ErrorIs(t, err, domain.ErrStaleOrderVersion)
	assert.Equal(t, 3, f.tx.calls)
}

func TestOrderService_RecordPayment(t *testing.T) {
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, "order-1").Return(func() *domain.Order {
		o := sampleOrder(domain.OrderStatusPending)()
		o.PaymentStatus = domain.PaymentStatusPending
		return o
	}, nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	order, err := f.svc.RecordPayment(context.Background(), "order-1", domain.PaymentStatusPaid, admin, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, order.PaymentStatus)

	_, err = f.svc.RecordPayment(context.Background(), "order-1", domain.PaymentStatusRefunded, admin, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentTransition)
}

func TestOrderService_History(t *testing.T) {
	f := newFixture()
	history := []domain.StatusChange{{Status: domain.OrderStatusPending, Timestamp: time.Now()}}
	f.repo.On("GetByID", mock.Anything, "order-1").Return(sampleOrder(domain.OrderStatusPending), nil)
	f.repo.On("History", mock.Anything, "order-1").Return(history, nil)

	got, err := f.svc.History(context.Background(), "order-1", customer)

	require.NoError(t, err)
	assert.Equal(t, history, got)
}

func TestOrderService_NotFound(t *testing.T) {
	f := newFixture()
	f.repo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrOrderNotFound)

	_, err := f.svc.Transition(context.Background(), "missing", domain.TransitionRequest{
		Target: domain.OrderStatusConfirmed,
		Actor:  admin,
	}, nil)

	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Equal(t, 1, f.tx.calls)
}
