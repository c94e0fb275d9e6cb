package notify

import (
	"context"
	"net/smtp"
	"testing"

	"kart-checkout/internal/config"
	"kart-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSellerDirectory struct {
	mock.Mock
}

func (m *MockSellerDirectory) GetSeller(ctx context.Context, id uuid.UUID) (*model.Seller, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Seller), args.Error(1)
}

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestEmailNotifier(sellers SellerDirectory, operator string) (*EmailNotifier, *[]sentMail) {
	n := NewEmailNotifier(config.SMTPConfig{
		Enabled: true, Host: "smtp.test", Port: 2525, From: "shop@example.com", OperatorEmail: operator,
	}, sellers, zerolog.Nop())

	var sent []sentMail
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
	return n, &sent
}

func TestEmailNotifier_OrderPlaced(t *testing.T) {
	n, sent := newTestEmailNotifier(new(MockSellerDirectory), "")
	order := testOrder()
	order.TotalAmount = decimal.RequireFromString("25.00")
	items := []model.OrderItem{{ProductName: "Anklet", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")}}

	err := n.Notify(context.Background(), model.NewEvent(model.EventOrderPlaced, order, items))
	require.NoError(t, err)

	require.Len(t, *sent, 1)
	mail := (*sent)[0]
	assert.Equal(t, "smtp.test:2525", mail.addr)
	assert.Equal(t, []string{"asha@example.com"}, mail.to)
	assert.Contains(t, mail.msg, "Subject: Order JB20240301001 confirmed")
	assert.Contains(t, mail.msg, "Anklet")
	assert.Contains(t, mail.msg, "25.00")
	assert.Contains(t, mail.msg, "pay on delivery")
}

func TestEmailNotifier_SellerNewOrder(t *testing.T) {
	sellers := new(MockSellerDirectory)
	n, sent := newTestEmailNotifier(sellers, "")

	sellerID := uuid.New()
	sellers.On("GetSeller", mock.Anything, sellerID).Return(&model.Seller{ID: sellerID, Name: "Meera", Email: "meera@example.com"}, nil)

	ev := model.NewEvent(model.EventSellerNewOrder, testOrder(), nil)
	ev.SellerID = &sellerID

	require.NoError(t, n.Notify(context.Background(), ev))
	require.Len(t, *sent, 1)
	assert.Equal(t, []string{"meera@example.com"}, (*sent)[0].to)
	assert.Contains(t, (*sent)[0].msg, "New order JB20240301001")
}

func TestEmailNotifier_Shortfall(t *testing.T) {
	t.Run("goes to the operator", func(t *testing.T) {
		n, sent := newTestEmailNotifier(new(MockSellerDirectory), "ops@example.com")
		ev := model.NewEvent(model.EventInventoryShortfall, testOrder(), nil)
		ev.Issues = []model.LineIssue{{ProductID: "P1", Reason: model.ReasonInsufficientStock, Requested: 3, Available: 1}}

		require.NoError(t, n.Notify(context.Background(), ev))
		require.Len(t, *sent, 1)
		assert.Equal(t, []string{"ops@example.com"}, (*sent)[0].to)
		assert.Contains(t, (*sent)[0].msg, "P1: insufficient_stock (requested 3, available 1)")
	})

	t.Run("skipped without operator address", func(t *testing.T) {
		n, sent := newTestEmailNotifier(new(MockSellerDirectory), "")
		err := n.Notify(context.Background(), model.NewEvent(model.EventInventoryShortfall, testOrder(), nil))
		assert.ErrorIs(t, err, ErrSkipped)
		assert.Empty(t, *sent)
	})
}

func TestEmailNotifier_StatusChanged(t *testing.T) {
	n, sent := newTestEmailNotifier(new(MockSellerDirectory), "")
	ev := model.NewEvent(model.EventOrderStatusChanged, testOrder(), nil)
	ev.PreviousStatus = model.OrderConfirmed
	ev.NewStatus = model.OrderShipped

	require.NoError(t, n.Notify(context.Background(), ev))
	assert.Contains(t, (*sent)[0].msg, "Subject: Order JB20240301001 is now shipped")
}
