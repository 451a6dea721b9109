package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/maplecart/storefront/internal/domain"
	"github.com/maplecart/storefront/internal/platform/payments"
	"github.com/maplecart/storefront/internal/service"
	"github.com/maplecart/storefront/pkg/config"
	"github.com/maplecart/storefront/pkg/events"
)

type orderFixture struct {
	orders   *MockOrderRepository
	products *MockProductRepository
	users    *MockUserRepository
	gateway  *MockGateway
	mailer   *MockMailer
	bus      *MockPublisher
	service  service.OrderService
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		orders:   new(MockOrderRepository),
		products: new(MockProductRepository),
		users:    new(MockUserRepository),
		gateway:  new(MockGateway),
		mailer:   new(MockMailer),
		bus:      new(MockPublisher),
	}
	cfg := &config.Config{
		Stripe: config.StripeConfig{Currency: "usd"},
	}
	f.service = service.NewOrderService(f.orders, f.products, f.users, f.gateway, f.mailer, f.bus, cfg)
	return f
}

func testAddress() domain.Address {
	return domain.Address{
		Name:         "Ada Lovelace",
		AddressLine1: "12 Analytical Way",
		City:         "London",
		PostalCode:   "N1 9GU",
		Country:      "GB",
	}
}

func testBuyer() *domain.User {
	return &domain.User{
		ID:    42,
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
	}
}

func TestOrderService_Create_FreeShippingOverThreshold(t *testing.T) {
	f := newOrderFixture()

	f.products.On("GetByID", mock.Anything, int64(1)).Return(&domain.Product{
		ID: 1, Title: "Walnut Desk Organizer", Price: 60, Stock: 10, Active: true,
		Images: []string{"organizer.jpg"},
	}, nil)

	var captured *domain.Order
	f.orders.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*domain.Order)
		}).
		Return(&domain.Order{ID: 7, OrderNumber: "ORD-TESTFREE", UserID: 42, Total: 129.60}, nil)
	f.users.On("FindByID", mock.Anything, int64(42)).Return(testBuyer(), nil)
	f.mailer.On("SendOrderConfirmation", "ada@example.com", "Ada Lovelace", "ORD-TESTFREE", 129.60).Return(nil)
	f.bus.On("Publish", mock.Anything, events.OrderCreated, mock.Anything).Return(nil)

	created, err := f.service.Create(context.Background(), 42, &domain.CreateOrderRequest{
		Items:           []domain.CreateOrderItem{{ProductID: 1, Quantity: 2}},
		ShippingAddress: testAddress(),
	})

	assert.NoError(t, err)
	assert.NotNil(t, created)
	assert.NotNil(t, captured)
	assert.InDelta(t, 120.0, captured.Subtotal, 0.001)
	assert.InDelta(t, 0.0, captured.ShippingCost, 0.001)
	assert.InDelta(t, 9.60, captured.Tax, 0.001)
	assert.InDelta(t, 129.60, captured.Total, 0.001)
	assert.Equal(t, domain.OrderPending, captured.Status)
	assert.Equal(t, "Walnut Desk Organizer", captured.Items[0].Title)
	assert.Equal(t, "organizer.jpg", captured.Items[0].Image)
	assert.InDelta(t, 60.0, captured.Items[0].PriceAtPurchase, 0.001)
	f.orders.AssertExpectations(t)
}

func TestOrderService_Create_FlatShippingUnderThreshold(t *testing.T) {
	f := newOrderFixture()

	f.products.On("GetByID", mock.Anything, int64(2)).Return(&domain.Product{
		ID: 2, Title: "Ceramic Mug", Price: 30, Stock: 5, Active: true,
	}, nil)

	var captured *domain.Order
	f.orders.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*domain.Order)
		}).
		Return(&domain.Order{ID: 8, OrderNumber: "ORD-TESTFLAT", UserID: 42, Total: 42.40}, nil)
	f.users.On("FindByID", mock.Anything, int64(42)).Return(testBuyer(), nil)
	f.mailer.On("SendOrderConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.bus.On("Publish", mock.Anything, events.OrderCreated, mock.Anything).Return(nil)

	_, err := f.service.Create(context.Background(), 42, &domain.CreateOrderRequest{
		Items:           []domain.CreateOrderItem{{ProductID: 2, Quantity: 1}},
		ShippingAddress: testAddress(),
	})

	assert.NoError(t, err)
	assert.InDelta(t, 30.0, captured.Subtotal, 0.001)
	assert.InDelta(t, 10.0, captured.ShippingCost, 0.001)
	assert.InDelta(t, 2.40, captured.Tax, 0.001)
	assert.InDelta(t, 42.40, captured.Total, 0.001)
}

func TestOrderService_Create_InsufficientStockFailsWholeCart(t *testing.T) {
	f := newOrderFixture()

	f.products.On("GetByID", mock.Anything, int64(1)).Return(&domain.Product{
		ID: 1, Title: "Ceramic Mug", Price: 30, Stock: 10, Active: true,
	}, nil)
	f.products.On("GetByID", mock.Anything, int64(2)).Return(&domain.Product{
		ID: 2, Title: "Walnut Desk Organizer", Price: 60, Stock: 1, Active: true,
	}, nil)

	_, err := f.service.Create(context.Background(), 42, &domain.CreateOrderRequest{
		Items: []domain.CreateOrderItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 3},
		},
		ShippingAddress: testAddress(),
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	var ise *domain.InsufficientStockError
	assert.ErrorAs(t, err, &ise)
	assert.Equal(t, "Walnut Desk Organizer", ise.ProductTitle)
	assert.Equal(t, 3, ise.Requested)
	assert.Equal(t, 1, ise.Available)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderService_Create_InactiveProductIsNotFound(t *testing.T) {
	f := newOrderFixture()

	f.products.On("GetByID", mock.Anything, int64(9)).Return(&domain.Product{
		ID: 9, Title: "Retired Lamp", Price: 45, Stock: 3, Active: false,
	}, nil)

	_, err := f.service.Create(context.Background(), 42, &domain.CreateOrderRequest{
		Items:           []domain.CreateOrderItem{{ProductID: 9, Quantity: 1}},
		ShippingAddress: testAddress(),
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderService_Get_OwnershipAndRole(t *testing.T) {
	f := newOrderFixture()

	order := &domain.Order{ID: 5, UserID: 42, Status: domain.OrderPending}
	f.orders.On("GetByID", mock.Anything, int64(5)).Return(order, nil)

	got, err := f.service.Get(context.Background(), 5, 42, domain.RoleUser)
	assert.NoError(t, err)
	assert.Equal(t, order, got)

	_, err = f.service.Get(context.Background(), 5, 99, domain.RoleUser)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	got, err = f.service.Get(context.Background(), 5, 99, domain.RoleAdmin)
	assert.NoError(t, err)
	assert.Equal(t, order, got)
}

func TestOrderService_CreatePaymentIntent(t *testing.T) {
	f := newOrderFixture()

	f.orders.On("GetByID", mock.Anything, int64(7)).Return(&domain.Order{
		ID: 7, OrderNumber: "ORD-TESTFREE", UserID: 42, Total: 129.60, Status: domain.OrderPending,
	}, nil)
	f.gateway.On("CreateIntent", mock.Anything, int64(12960), "usd", mock.MatchedBy(func(md map[string]string) bool {
		return md["order_id"] == "7" && md["user_id"] == "42"
	})).Return(&payments.Intent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil)
	f.orders.On("SetPaymentIntent", mock.Anything, int64(7), "pi_123").Return(nil)

	resp, err := f.service.CreatePaymentIntent(context.Background(), 7, 42)

	assert.NoError(t, err)
	assert.Equal(t, "pi_123_secret", resp.ClientSecret)
	assert.Equal(t, int64(7), resp.OrderID)
	f.gateway.AssertExpectations(t)
	f.orders.AssertExpectations(t)
}

func TestOrderService_CreatePaymentIntent_Failures(t *testing.T) {
	f := newOrderFixture()

	f.orders.On("GetByID", mock.Anything, int64(1)).Return(nil, nil)
	f.orders.On("GetByID", mock.Anything, int64(2)).Return(&domain.Order{
		ID: 2, UserID: 42, Status: domain.OrderPending,
	}, nil)
	f.orders.On("GetByID", mock.Anything, int64(3)).Return(&domain.Order{
		ID: 3, UserID: 42, Status: domain.OrderPaid,
	}, nil)

	_, err := f.service.CreatePaymentIntent(context.Background(), 1, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.service.CreatePaymentIntent(context.Background(), 2, 99)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	_, err = f.service.CreatePaymentIntent(context.Background(), 3, 42)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	f.gateway.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_HandleGatewayEvent_InvalidSignature(t *testing.T) {
	f := newOrderFixture()

	f.gateway.On("VerifyEvent", []byte(`{}`), "bad-sig").
		Return(nil, fmt.Errorf("%w: mismatch", domain.ErrInvalidSignature))

	err := f.service.HandleGatewayEvent(context.Background(), []byte(`{}`), "bad-sig")

	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	f.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_HandleGatewayEvent_IgnoresOtherTypes(t *testing.T) {
	f := newOrderFixture()

	f.gateway.On("VerifyEvent", mock.Anything, mock.Anything).Return(&payments.Event{
		Type: "payment_intent.created",
	}, nil)

	err := f.service.HandleGatewayEvent(context.Background(), []byte(`{}`), "sig")

	assert.NoError(t, err)
	f.orders.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_HandleGatewayEvent_MarksPaidIdempotently(t *testing.T) {
	f := newOrderFixture()

	f.gateway.On("VerifyEvent", mock.Anything, mock.Anything).Return(&payments.Event{
		Type:     payments.EventPaymentSucceeded,
		IntentID: "pi_123",
		Metadata: map[string]string{"order_id": "7"},
	}, nil)
	f.orders.On("GetByID", mock.Anything, int64(7)).Return(&domain.Order{
		ID: 7, OrderNumber: "ORD-TESTFREE", UserID: 42, Status: domain.OrderPending,
	}, nil)
	f.orders.On("MarkPaid", mock.Anything, int64(7), domain.PaymentSucceeded).Return(nil)
	f.users.On("FindByID", mock.Anything, int64(42)).Return(testBuyer(), nil)
	f.bus.On("Publish", mock.Anything, events.OrderPaid, mock.Anything).Return(nil)

	assert.NoError(t, f.service.HandleGatewayEvent(context.Background(), []byte(`{}`), "sig"))
	// Redelivery applies the same terminal state again without error.
	assert.NoError(t, f.service.HandleGatewayEvent(context.Background(), []byte(`{}`), "sig"))

	f.orders.AssertNumberOfCalls(t, "MarkPaid", 2)
}

func TestOrderService_UpdateStatus(t *testing.T) {
	f := newOrderFixture()

	tracking := "TRK-1"
	f.orders.On("UpdateStatus", mock.Anything, int64(5), domain.OrderShipped, &tracking).
		Return(&domain.Order{ID: 5, OrderNumber: "ORD-SHIP", UserID: 42, Status: domain.OrderShipped}, nil)
	f.users.On("FindByID", mock.Anything, int64(42)).Return(&domain.User{
		ID: 42, Mobile: "+15550100", MobileVerified: true,
	}, nil)
	f.bus.On("Publish", mock.Anything, events.OrderStatusChanged, mock.MatchedBy(func(ev events.OrderStatusChangedEvent) bool {
		return ev.Status == "shipped" && ev.Mobile == "+15550100"
	})).Return(nil)

	order, err := f.service.UpdateStatus(context.Background(), 5, "shipped", &tracking)

	assert.NoError(t, err)
	assert.Equal(t, domain.OrderShipped, order.Status)
	f.bus.AssertExpectations(t)
}

func TestOrderService_UpdateStatus_RejectsUnknownStatus(t *testing.T) {
	f := newOrderFixture()

	_, err := f.service.UpdateStatus(context.Background(), 5, "teleported", nil)

	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
	f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
