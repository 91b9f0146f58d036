package services

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/mailer"

	"ticketeer/models"
)

// Notifier is the outbound notification collaborator. Implementations are
// best-effort: callers run them after the transaction committed and report
// failures instead of propagating them.
type Notifier interface {
	// SendTicketQR delivers one ticket's access artifact to its buyer.
	SendTicketQR(ctx context.Context, to string, ticket models.Ticket, event models.EventSummary, accessHash string) error

	// SendOrderConfirmation delivers the buyer-confirmation link for a
	// multi-ticket order.
	SendOrderConfirmation(ctx context.Context, to string, event models.EventSummary, orderRef, confirmationURL string, totalTickets int) error
}

// NotificationResult records one best-effort dispatch outcome.
type NotificationResult struct {
	Recipient string `json:"recipient"`
	Kind      string `json:"kind"`
	TicketID  string `json:"ticket_id,omitempty"`
	Sent      bool   `json:"sent"`
	Error     string `json:"error,omitempty"`
}

// EmailService sends buyer mail through the app's configured mailer.
type EmailService struct {
	app     core.App
	baseURL string
}

func NewEmailService(app core.App, baseURL string) *EmailService {
	return &EmailService{app: app, baseURL: baseURL}
}

func (s *EmailService) send(to, subject, html string) error {
	message := &mailer.Message{
		From: mail.Address{
			Name:    s.app.Settings().Meta.SenderName,
			Address: s.app.Settings().Meta.SenderAddress,
		},
		To:      []mail.Address{{Address: to}},
		Subject: subject,
		HTML:    html,
	}
	return s.app.NewMailClient().Send(message)
}

func (s *EmailService) SendTicketQR(ctx context.Context, to string, ticket models.Ticket, event models.EventSummary, accessHash string) error {
	subject := fmt.Sprintf("Seu ingresso #%d - %s", ticket.IdentificationNumber, event.Name)
	checkinURL := s.baseURL + "/checkin/" + accessHash

	html := fmt.Sprintf(`
		<h2>Seu ingresso para %s</h2>
		<p>Olá %s!</p>
		<p>Este é o seu ingresso <strong>#%d</strong> para o evento <strong>%s</strong> em %s.</p>
		<p>Apresente o QR code abaixo na entrada:</p>
		<p><img src="%s/api/qr/%s" alt="QR code do ingresso" /></p>
		<p>Ou acesse diretamente: <a href="%s">%s</a></p>
		<p>Atenciosamente,<br/>Equipe Ticketeer</p>`,
		event.Name, ticket.Buyer, ticket.IdentificationNumber, event.Name, event.Venue,
		s.baseURL, accessHash, checkinURL, checkinURL)

	return s.send(to, subject, html)
}

func (s *EmailService) SendOrderConfirmation(ctx context.Context, to string, event models.EventSummary, orderRef, confirmationURL string, totalTickets int) error {
	subject := fmt.Sprintf("Confirme as informações dos seus ingressos - %s", event.Name)

	html := fmt.Sprintf(`
		<h2>Compra confirmada!</h2>
		<p>Olá!</p>
		<p>Você acabou de comprar %d ingresso(s) para o evento <strong>%s</strong>.</p>
		<p>Para finalizar, confirme as informações dos portadores dos ingressos:</p>
		<p><a href="%s">Preencher dados dos ingressos</a></p>
		<p>Pedido: %s</p>
		<p>Atenciosamente,<br/>Equipe Ticketeer</p>`,
		totalTickets, event.Name, confirmationURL, orderRef)

	return s.send(to, subject, html)
}
