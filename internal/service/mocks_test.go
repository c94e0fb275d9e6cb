package service

import (
	"context"
	"sync"
	"time"

	"kart-checkout/internal/ledger"
	"kart-checkout/internal/model"
	"kart-checkout/internal/payment"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) ListPurchasable(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) LockByIDs(ctx context.Context, tx pgx.Tx, ids []string) ([]model.Product, error) {
	args := m.Called(ctx, tx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, tx pgx.Tx, id string, qty int) error {
	return m.Called(ctx, tx, id, qty).Error(0)
}

func (m *MockProductRepository) GetSeller(ctx context.Context, id uuid.UUID) (*model.Seller, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Seller), args.Error(1)
}

// MockCartRepository is a mock implementation of CartRepository.
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) GetLines(ctx context.Context, cartID string) ([]model.CartLine, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartLine), args.Error(1)
}

func (m *MockCartRepository) AddLine(ctx context.Context, cartID string, line model.CartLine) (*model.CartLine, error) {
	args := m.Called(ctx, cartID, line)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartLine), args.Error(1)
}

func (m *MockCartRepository) RemoveLine(ctx context.Context, cartID, productID string) (bool, error) {
	args := m.Called(ctx, cartID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCartRepository) Clear(ctx context.Context, tx pgx.Tx, cartID string) error {
	return m.Called(ctx, tx, cartID).Error(0)
}

// MockPendingOrderRepository is a mock implementation of PendingOrderRepository.
type MockPendingOrderRepository struct {
	mock.Mock
}

func (m *MockPendingOrderRepository) Create(ctx context.Context, p *model.PendingOrder) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPendingOrderRepository) GetByToken(ctx context.Context, token string) (*model.PendingOrder, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PendingOrder), args.Error(1)
}

func (m *MockPendingOrderRepository) LockByToken(ctx context.Context, tx pgx.Tx, token string) (*model.PendingOrder, error) {
	args := m.Called(ctx, tx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PendingOrder), args.Error(1)
}

func (m *MockPendingOrderRepository) Delete(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockPendingOrderRepository) DeleteTx(ctx context.Context, tx pgx.Tx, token string) error {
	return m.Called(ctx, tx, token).Error(0)
}

func (m *MockPendingOrderRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.PendingOrder, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PendingOrder), args.Error(1)
}

func (m *MockPendingOrderRepository) Postpone(ctx context.Context, token string, until time.Time) error {
	args := m.Called(ctx, token, until)
	return args.Error(0)
}

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	return m.Called(ctx, tx, order).Error(0)
}

func (m *MockOrderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	return m.Called(ctx, tx, items).Error(0)
}

func (m *MockOrderRepository) CountOrdersOn(ctx context.Context, tx pgx.Tx, day time.Time) (int, error) {
	args := m.Called(ctx, tx, day)
	return args.Int(0), args.Error(1)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Order), args.Get(1).([]model.OrderItem), args.Error(2)
}

func (m *MockOrderRepository) GetByPaymentRef(ctx context.Context, ref string) (*model.Order, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Order), args.Get(1).([]model.OrderItem), args.Error(2)
}

func (m *MockOrderRepository) UpdateItemStatus(ctx context.Context, tx pgx.Tx, orderID, itemID uuid.UUID, status model.ItemStatus) (bool, error) {
	args := m.Called(ctx, tx, orderID, itemID, status)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) SetItemsStatus(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status model.ItemStatus) error {
	return m.Called(ctx, tx, orderID, status).Error(0)
}

func (m *MockOrderRepository) UpdateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	return m.Called(ctx, tx, order).Error(0)
}

func (m *MockOrderRepository) ListRequiringReview(ctx context.Context, limit int) ([]model.Order, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

// MockLedger is a mock implementation of OrderLedger.
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) receipt(args mock.Arguments) (*ledger.Receipt, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Receipt), args.Error(1)
}

func (m *MockLedger) PlaceDirect(ctx context.Context, in ledger.CreateInput) (*ledger.Receipt, error) {
	return m.receipt(m.Called(ctx, in))
}

func (m *MockLedger) Materialize(ctx context.Context, token string) (*ledger.Receipt, error) {
	return m.receipt(m.Called(ctx, token))
}

func (m *MockLedger) UpdateItemStatus(ctx context.Context, orderID, itemID uuid.UUID, status model.ItemStatus, sellerID *uuid.UUID) (*ledger.Receipt, error) {
	return m.receipt(m.Called(ctx, orderID, itemID, status, sellerID))
}

func (m *MockLedger) CancelOrder(ctx context.Context, orderID uuid.UUID, sellerID *uuid.UUID) (*ledger.Receipt, error) {
	return m.receipt(m.Called(ctx, orderID, sellerID))
}

func (m *MockLedger) MarkPaid(ctx context.Context, orderID uuid.UUID) (*ledger.Receipt, error) {
	return m.receipt(m.Called(ctx, orderID))
}

func (m *MockLedger) ResolveReview(ctx context.Context, orderID uuid.UUID, note string) (*ledger.Receipt, error) {
	return m.receipt(m.Called(ctx, orderID, note))
}

// MockGateway is a mock implementation of payment.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Session), args.Error(1)
}

func (m *MockGateway) Verify(ctx context.Context, orderRef string) (*payment.Verification, error) {
	args := m.Called(ctx, orderRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Verification), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, req payment.RefundRequest) (*payment.Refund, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Refund), args.Error(1)
}

// MockGuard is a mock implementation of InventoryValidator.
type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) Validate(ctx context.Context, lines []model.CartLine) error {
	return m.Called(ctx, lines).Error(0)
}

// recordingDispatcher collects dispatched events.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []model.Event
}

func (d *recordingDispatcher) Dispatch(events ...model.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, events...)
}

func (d *recordingDispatcher) types() []model.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.EventType, 0, len(d.events))
	for _, ev := range d.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []model.Outcome
}

func (o *recordingObserver) ObserveReconcile(_ model.SignalSource, outcome model.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}
