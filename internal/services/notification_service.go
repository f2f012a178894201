// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"text/template"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/tink-backend/internal/config"
	"github.com/javajoker/tink-backend/internal/models"
)

// SMSSender delivers text messages to tenants. Real delivery lives outside
// this service.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// LogSMSSender writes messages to the log instead of sending them.
type LogSMSSender struct{}

func (LogSMSSender) Send(_ context.Context, phone, message string) error {
	logrus.WithFields(logrus.Fields{
		"phone":   maskPhone(phone),
		"message": message,
	}).Info("SMS would be sent")
	return nil
}

// OutboxSMSSender keeps sent messages in memory.
type OutboxSMSSender struct {
	mu       sync.Mutex
	Messages []SMSMessage
}

type SMSMessage struct {
	Phone string
	Body  string
}

func (o *OutboxSMSSender) Send(_ context.Context, phone, message string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Messages = append(o.Messages, SMSMessage{Phone: phone, Body: message})
	return nil
}

func (o *OutboxSMSSender) Last() (SMSMessage, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.Messages) == 0 {
		return SMSMessage{}, false
	}
	return o.Messages[len(o.Messages)-1], true
}

type NotificationService struct {
	sender SMSSender
	config *config.Config
}

func NewNotificationService(sender SMSSender, config *config.Config) *NotificationService {
	if sender == nil {
		sender = LogSMSSender{}
	}
	return &NotificationService{
		sender: sender,
		config: config,
	}
}

func (s *NotificationService) SendOTP(ctx context.Context, phone, code string, ttl time.Duration) error {
	return s.send(ctx, phone, "otp", map[string]interface{}{
		"Code":    code,
		"Minutes": int(ttl.Minutes()),
	})
}

func (s *NotificationService) SendLeaseReady(ctx context.Context, lease *models.Lease, phone, propertyName string) error {
	if phone == "" {
		return nil
	}
	return s.send(ctx, phone, "lease_sent", map[string]interface{}{
		"TenantName":   lease.TenantName,
		"PropertyName": propertyName,
		"PortalURL":    fmt.Sprintf("%s/tenant/leases/%d", s.config.Frontend.BaseURL, lease.ID),
	})
}

func (s *NotificationService) SendPaymentReceipt(ctx context.Context, phone string, payment *models.RentPayment) error {
	if phone == "" {
		return nil
	}
	return s.send(ctx, phone, "payment_receipt", map[string]interface{}{
		"Amount":   fmt.Sprintf("%.2f", payment.Amount),
		"Currency": payment.Currency,
		"Period":   payment.PeriodStart.Format("January 2006"),
	})
}

func (s *NotificationService) send(ctx context.Context, phone, templateType string, data interface{}) error {
	body, err := s.renderTemplate(getSMSTemplate(templateType), data)
	if err != nil {
		return fmt.Errorf("failed to render %s message: %w", templateType, err)
	}
	if err := s.sender.Send(ctx, phone, body); err != nil {
		return fmt.Errorf("failed to send %s message: %w", templateType, err)
	}
	return nil
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("sms").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func getSMSTemplate(templateType string) string {
	templates := map[string]string{
		"otp":             "Your Tink verification code is {{.Code}}. It expires in {{.Minutes}} minutes.",
		"lease_sent":      "Hi {{.TenantName}}, your lease for {{.PropertyName}} is ready to sign: {{.PortalURL}}",
		"payment_receipt": "Tink received your rent payment of {{.Amount}} {{.Currency}} for {{.Period}}. Thank you!",
	}

	if tmpl, exists := templates[templateType]; exists {
		return tmpl
	}
	return "{{.}}"
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
