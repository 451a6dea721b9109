package service

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/maplecart/storefront/internal/domain"
	"github.com/maplecart/storefront/internal/platform/mailer"
	"github.com/maplecart/storefront/internal/platform/payments"
	"github.com/maplecart/storefront/internal/repo/postgres"
	"github.com/maplecart/storefront/internal/validate"
	"github.com/maplecart/storefront/pkg/config"
	"github.com/maplecart/storefront/pkg/events"
	"github.com/maplecart/storefront/pkg/logger"
)

type OrderService interface {
	Create(ctx context.Context, userID int64, req *domain.CreateOrderRequest) (*domain.Order, error)
	Get(ctx context.Context, orderID, userID int64, role domain.Role) (*domain.Order, error)
	ListMine(ctx context.Context, userID int64, page, limit int) (*domain.OrderPage, error)
	ListAll(ctx context.Context, status *domain.OrderStatus, page, limit int) (*domain.OrderPage, error)
	UpdateStatus(ctx context.Context, orderID int64, status string, trackingNumber *string) (*domain.Order, error)

	CreatePaymentIntent(ctx context.Context, orderID, userID int64) (*domain.PaymentIntentResponse, error)
	// HandleGatewayEvent verifies and applies a provider webhook. The raw body
	// and signature header come straight off the request; nothing is trusted
	// until verification passes.
	HandleGatewayEvent(ctx context.Context, payload []byte, signature string) error
}

type orderService struct {
	orders   postgres.OrderRepository
	products postgres.ProductRepository
	users    postgres.UserRepository
	gateway  payments.Gateway
	mailer   mailer.Service
	eventBus events.Publisher
	config   *config.Config
}

func NewOrderService(
	orders postgres.OrderRepository,
	products postgres.ProductRepository,
	users postgres.UserRepository,
	gateway payments.Gateway,
	mailer mailer.Service,
	eventBus events.Publisher,
	config *config.Config,
) OrderService {
	return &orderService{
		orders:   orders,
		products: products,
		users:    users,
		gateway:  gateway,
		mailer:   mailer,
		eventBus: eventBus,
		config:   config,
	}
}

func (s *orderService) Create(ctx context.Context, userID int64, req *domain.CreateOrderRequest) (*domain.Order, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	// Snapshot each line against the live catalog. The repository re-checks
	// stock under a transaction; this pass rejects obvious failures before
	// anything is written.
	items := make([]domain.OrderItem, 0, len(req.Items))
	var subtotal float64
	for _, line := range req.Items {
		product, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to load product %d: %w", line.ProductID, err)
		}
		if product == nil || !product.Active {
			return nil, fmt.Errorf("product %d: %w", line.ProductID, domain.ErrNotFound)
		}
		if product.Stock < line.Quantity {
			return nil, &domain.InsufficientStockError{
				ProductTitle: product.Title,
				Requested:    line.Quantity,
				Available:    product.Stock,
			}
		}
		items = append(items, domain.OrderItem{
			ProductID:       product.ID,
			Title:           product.Title,
			Image:           product.MainImage(),
			Quantity:        line.Quantity,
			PriceAtPurchase: product.Price,
		})
		subtotal += product.Price * float64(line.Quantity)
	}

	shipping := domain.ShippingFor(subtotal)
	tax := domain.TaxFor(subtotal)

	order := &domain.Order{
		OrderNumber:     domain.NewOrderNumber(),
		UserID:          userID,
		Items:           items,
		Subtotal:        subtotal,
		ShippingCost:    shipping,
		Tax:             tax,
		Total:           subtotal + shipping + tax,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
		Status:          domain.OrderPending,
	}

	created, err := s.orders.Create(ctx, order)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		logger.ErrorContext(ctx, "failed to load user for order confirmation", "error", err, "order_id", created.ID)
	} else if err := s.mailer.SendOrderConfirmation(user.Email, user.Name, created.OrderNumber, created.Total); err != nil {
		logger.ErrorContext(ctx, "failed to send order confirmation", "error", err, "order_id", created.ID)
	}

	if err := s.eventBus.Publish(ctx, events.OrderCreated, events.OrderCreatedEvent{
		OrderID:     created.ID,
		OrderNumber: created.OrderNumber,
		UserID:      created.UserID,
		Total:       created.Total,
		CreatedAt:   created.CreatedAt,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to publish order.created", "error", err, "order_id", created.ID)
	}

	return created, nil
}

func (s *orderService) Get(ctx context.Context, orderID, userID int64, role domain.Role) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	if !order.IsOwner(userID) && role != domain.RoleAdmin {
		return nil, domain.ErrAccessDenied
	}
	return order, nil
}

func (s *orderService) ListMine(ctx context.Context, userID int64, page, limit int) (*domain.OrderPage, error) {
	page, limit = clampPage(page, limit)
	orders, total, err := s.orders.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return &domain.OrderPage{Orders: orders, Pagination: domain.NewPagination(page, limit, total)}, nil
}

func (s *orderService) ListAll(ctx context.Context, status *domain.OrderStatus, page, limit int) (*domain.OrderPage, error) {
	page, limit = clampPage(page, limit)
	orders, total, err := s.orders.List(ctx, status, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return &domain.OrderPage{Orders: orders, Pagination: domain.NewPagination(page, limit, total)}, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID int64, status string, trackingNumber *string) (*domain.Order, error) {
	parsed, ok := domain.ParseOrderStatus(status)
	if !ok {
		return nil, domain.NewValidationError("status", "is invalid")
	}

	order, err := s.orders.UpdateStatus(ctx, orderID, parsed, trackingNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}

	mobile := ""
	if user, err := s.users.FindByID(ctx, order.UserID); err == nil && user != nil && user.MobileVerified {
		mobile = user.Mobile
	}
	if err := s.eventBus.Publish(ctx, events.OrderStatusChanged, events.OrderStatusChangedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Mobile:      mobile,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to publish order.status_changed", "error", err, "order_id", order.ID)
	}

	return order, nil
}

func (s *orderService) CreatePaymentIntent(ctx context.Context, orderID, userID int64) (*domain.PaymentIntentResponse, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	if !order.IsOwner(userID) {
		return nil, domain.ErrAccessDenied
	}
	if order.Status != domain.OrderPending {
		return nil, fmt.Errorf("order is %s: %w", order.Status, domain.ErrInvalidState)
	}

	amount := int64(math.Round(order.Total * 100))
	intent, err := s.gateway.CreateIntent(ctx, amount, s.config.Stripe.Currency, map[string]string{
		"order_id":     strconv.FormatInt(order.ID, 10),
		"order_number": order.OrderNumber,
		"user_id":      strconv.FormatInt(order.UserID, 10),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	if err := s.orders.SetPaymentIntent(ctx, order.ID, intent.ID); err != nil {
		return nil, fmt.Errorf("failed to store payment intent: %w", err)
	}

	return &domain.PaymentIntentResponse{ClientSecret: intent.ClientSecret, OrderID: order.ID}, nil
}

func (s *orderService) HandleGatewayEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.VerifyEvent(payload, signature)
	if err != nil {
		return err
	}

	if event.Type != payments.EventPaymentSucceeded {
		logger.DebugContext(ctx, "ignoring gateway event", "type", event.Type)
		return nil
	}

	orderID, err := strconv.ParseInt(event.Metadata["order_id"], 10, 64)
	if err != nil {
		logger.WarnContext(ctx, "gateway event without usable order_id", "intent_id", event.IntentID)
		return nil
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to get order %d: %w", orderID, err)
	}
	if order == nil {
		logger.WarnContext(ctx, "gateway event for unknown order", "order_id", orderID, "intent_id", event.IntentID)
		return nil
	}

	// MarkPaid is idempotent: a redelivered event rewrites the same values.
	if err := s.orders.MarkPaid(ctx, order.ID, domain.PaymentSucceeded); err != nil {
		return fmt.Errorf("failed to mark order %d paid: %w", order.ID, err)
	}

	mobile := ""
	if user, err := s.users.FindByID(ctx, order.UserID); err == nil && user != nil && user.MobileVerified {
		mobile = user.Mobile
	}
	if err := s.eventBus.Publish(ctx, events.OrderPaid, events.OrderPaidEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Mobile:      mobile,
	}); err != nil {
		logger.ErrorContext(ctx, "failed to publish order.paid", "error", err, "order_id", order.ID)
	}

	return nil
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}
