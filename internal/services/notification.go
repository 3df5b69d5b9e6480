package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/priyanshu-sharma/storefront/internal/models"
	sendgrid "github.com/priyanshu-sharma/storefront/pkg/sendgrid"
)

// NotificationService sends transactional mail. Failures here never fail the
// operation that triggered them; callers log and move on.
type NotificationService interface {
	SendOrderConfirmation(ctx context.Context, to string, order *models.Order) error
}

type notificationService struct {
	emails sendgrid.EmailService
	// shipping fields are buyer-supplied free text and end up in HTML
	sanitizer *bluemonday.Policy
}

func NewNotificationService(emails sendgrid.EmailService) NotificationService {
	return &notificationService{
		emails:    emails,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *notificationService) SendOrderConfirmation(ctx context.Context, to string, order *models.Order) error {
	var lines strings.Builder
	for _, line := range order.Lines {
		fmt.Fprintf(&lines, "<li>Product #%d &times; %d at %s</li>", line.ProductID, line.Quantity, line.Price.StringFixed(2))
	}

	shipTo := s.sanitizer.Sanitize(fmt.Sprintf("%s, %s, %s",
		order.ShippingAddress.FullName, order.ShippingAddress.Address, order.ShippingAddress.City))

	email := &sendgrid.Email{
		To:      to,
		Subject: fmt.Sprintf("Order #%d confirmed", order.ID),
		Content: fmt.Sprintf("Your order #%d for %s has been placed.", order.ID, order.TotalAmount.StringFixed(2)),
		HTMLContent: fmt.Sprintf(
			"<h2>Thanks for your order!</h2><p>Order <strong>#%d</strong> has been placed.</p><ul>%s</ul><p>Total: <strong>%s</strong></p><p>Shipping to: %s</p>",
			order.ID, lines.String(), order.TotalAmount.StringFixed(2), shipTo),
	}

	return s.emails.Send(ctx, email)
}
