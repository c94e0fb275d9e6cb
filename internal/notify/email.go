package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strconv"

	"kart-checkout/internal/config"
	"kart-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SellerDirectory resolves a seller's contact details.
type SellerDirectory interface {
	GetSeller(ctx context.Context, id uuid.UUID) (*model.Seller, error)
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends order emails over SMTP.
type EmailNotifier struct {
	cfg      config.SMTPConfig
	sellers  SellerDirectory
	send     sendMailFunc
	template *template.Template
	logger   zerolog.Logger
}

// NewEmailNotifier creates an EmailNotifier.
func NewEmailNotifier(cfg config.SMTPConfig, sellers SellerDirectory, logger zerolog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:      cfg,
		sellers:  sellers,
		send:     smtp.SendMail,
		template: template.Must(template.New("email").Parse(emailTemplates)),
		logger:   logger.With().Str("notifier", "email").Logger(),
	}
}

type emailData struct {
	Name   string
	Order  *model.Order
	Items  []model.OrderItem
	Event  model.Event
	Issues []model.LineIssue
}

// Notify sends the email matching the event type.
func (n *EmailNotifier) Notify(ctx context.Context, event model.Event) error {
	if event.Order == nil {
		return ErrSkipped
	}

	switch event.Type {
	case model.EventOrderPlaced:
		return n.mail(event.Order.Customer.Email,
			fmt.Sprintf("Order %s confirmed", event.Order.OrderNumber),
			"order_placed",
			emailData{Name: event.Order.Customer.FullName(), Order: event.Order, Items: event.Items})

	case model.EventOrderStatusChanged:
		return n.mail(event.Order.Customer.Email,
			fmt.Sprintf("Order %s is now %s", event.Order.OrderNumber, event.NewStatus),
			"status_changed",
			emailData{Name: event.Order.Customer.FullName(), Order: event.Order, Event: event})

	case model.EventSellerNewOrder:
		if event.SellerID == nil {
			return ErrSkipped
		}
		seller, err := n.sellers.GetSeller(ctx, *event.SellerID)
		if err != nil {
			return fmt.Errorf("failed to look up seller: %w", err)
		}
		if seller == nil || seller.Email == "" {
			return ErrSkipped
		}
		return n.mail(seller.Email,
			fmt.Sprintf("New order %s", event.Order.OrderNumber),
			"seller_new_order",
			emailData{Name: seller.Name, Order: event.Order, Items: event.Items})

	case model.EventInventoryShortfall:
		if n.cfg.OperatorEmail == "" {
			return ErrSkipped
		}
		return n.mail(n.cfg.OperatorEmail,
			fmt.Sprintf("Review required: order %s", event.Order.OrderNumber),
			"shortfall",
			emailData{Order: event.Order, Issues: event.Issues})
	}

	return ErrSkipped
}

func (n *EmailNotifier) mail(to, subject, tmpl string, data emailData) error {
	if to == "" {
		return ErrSkipped
	}

	var body bytes.Buffer
	if err := n.template.ExecuteTemplate(&body, tmpl, data); err != nil {
		return fmt.Errorf("template execution error: %w", err)
	}

	message := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n%s",
		n.cfg.From, to, subject, body.String(),
	)

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	addr := n.cfg.Host + ":" + strconv.Itoa(n.cfg.Port)
	if err := n.send(addr, auth, n.cfg.From, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Debug().Str("to", to).Str("template", tmpl).Msg("email sent")
	return nil
}

const emailTemplates = `
{{define "items"}}<table>
{{range .}}<tr><td>{{.ProductName}}</td><td>{{.Quantity}}</td><td>{{.UnitPrice.StringFixed 2}}</td></tr>
{{end}}</table>{{end}}

{{define "order_placed"}}<p>Hi {{.Name}},</p>
<p>Thank you for your order <strong>{{.Order.OrderNumber}}</strong>.</p>
{{template "items" .Items}}
<p>Total: {{.Order.TotalAmount.StringFixed 2}}{{if not .Order.Paid}} (pay on delivery){{end}}</p>{{end}}

{{define "status_changed"}}<p>Hi {{.Name}},</p>
<p>Your order <strong>{{.Order.OrderNumber}}</strong> is now <strong>{{.Event.NewStatus}}</strong>.</p>{{end}}

{{define "seller_new_order"}}<p>Hi {{.Name}},</p>
<p>You have a new order <strong>{{.Order.OrderNumber}}</strong>.</p>
{{template "items" .Items}}
<p>Ship to: {{.Order.Customer.FullName}}, {{.Order.Customer.Address}}, {{.Order.Customer.City}} {{.Order.Customer.Zipcode}}</p>{{end}}

{{define "shortfall"}}<p>Order <strong>{{.Order.OrderNumber}}</strong> was paid but cannot be fulfilled.</p>
<ul>{{range .Issues}}<li>{{.String}}</li>{{end}}</ul>
<p>Refund the buyer and resolve the review.</p>{{end}}
`
