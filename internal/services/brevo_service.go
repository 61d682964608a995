package services

import (
	"context"
	"fmt"
	"html"
	"sync"
	"time"

	"pos-ledger-api/pkg/logging"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// BrevoService emails the operator about new orders through Brevo
type BrevoService struct {
	client    *brevo.APIClient
	fromEmail string
	fromName  string
	to        string
	wg        sync.WaitGroup
}

// NewBrevoService creates a new Brevo service instance
func NewBrevoService(apiKey, fromEmail, fromName, operatorEmail string) *BrevoService {
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", apiKey)
	return &BrevoService{
		client:    brevo.NewAPIClient(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		to:        operatorEmail,
	}
}

// NotifyNewOrder emails the operator in the background. The webhook URL is
// not used.
func (s *BrevoService) NotifyNewOrder(_ string, event NewOrderEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.sendOrderEmail(ctx, event); err != nil {
			logging.Errorf("Order email failed - order: %s, error: %v", event.OrderID, err)
			return
		}
		logging.Infof("Order email sent - order: %s", event.OrderID)
	}()
}

// Wait blocks until in-flight emails finish or ctx is done
func (s *BrevoService) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (s *BrevoService) sendOrderEmail(ctx context.Context, event NewOrderEvent) error {
	subject := fmt.Sprintf("New order %s - %s", event.OrderID, event.Store)
	textContent := fmt.Sprintf("Order: %s\nStore: %s\nContact: %s\nPlan: %s\nTime: %s\n",
		event.OrderID, event.Store, event.Contact, event.Plan, event.Time)
	htmlContent := fmt.Sprintf(`<h2>New order %s</h2>
<p>Store: %s<br>Contact: %s<br>Plan: %s<br>Time: %s</p>`,
		html.EscapeString(event.OrderID), html.EscapeString(event.Store),
		html.EscapeString(event.Contact), html.EscapeString(event.Plan), html.EscapeString(event.Time))

	_, resp, err := s.client.TransactionalEmailsApi.SendTransacEmail(ctx, brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  s.fromName,
			Email: s.fromEmail,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: s.to},
		},
		Subject:     subject,
		HtmlContent: htmlContent,
		TextContent: textContent,
	})
	if err != nil {
		return fmt.Errorf("brevo API error: %w", err)
	}
	if resp != nil {
		defer resp.Body.Close()
	}
	return nil
}
