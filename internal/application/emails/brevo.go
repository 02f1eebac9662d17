package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender   `json:"sender"`
	To          []BrevoTo     `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
	ReplyTo     *BrevoReplyTo `json:"replyTo,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Sender sends transactional emails for account and donation lifecycle events. Nil = no-op.
type Sender interface {
	SendWelcome(ctx context.Context, toEmail, firstName string) error
	SendDonationAccepted(ctx context.Context, toEmail, donorName, donationTitle, ngoName string) error
	SendDonationCompleted(ctx context.Context, toEmail, recipientName, donationTitle string) error
	SendDonationCancelled(ctx context.Context, toEmail, recipientName, donationTitle, reason string) error
}

// BrevoClient sends emails via Brevo (Sendinblue) API. Env: SENDINBLUE_API_KEY, MAIL_FROM.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@ngoconnect.org"
}

// send sends one email via Brevo API.
func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "NGO-Connect"},
		To:          []BrevoTo{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     &BrevoReplyTo{Email: "support@ngoconnect.org", Name: "NGO-Connect Support"},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPI, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendWelcome sends the welcome email after account creation.
func (c *BrevoClient) SendWelcome(ctx context.Context, toEmail, firstName string) error {
	if c.APIKey == "" {
		return nil
	}
	if firstName == "" {
		firstName = "there"
	}
	return c.send(ctx, toEmail, "Welcome to NGO-Connect!", EmailLayout(welcomeContent(firstName)))
}

// SendDonationAccepted tells the donor an NGO accepted their donation.
func (c *BrevoClient) SendDonationAccepted(ctx context.Context, toEmail, donorName, donationTitle, ngoName string) error {
	if c.APIKey == "" {
		return nil
	}
	content := donationAcceptedContent(donorName, donationTitle, ngoName)
	return c.send(ctx, toEmail, "Your donation has been accepted", EmailLayout(content))
}

// SendDonationCompleted tells a counterpart the donation reached completion.
func (c *BrevoClient) SendDonationCompleted(ctx context.Context, toEmail, recipientName, donationTitle string) error {
	if c.APIKey == "" {
		return nil
	}
	content := donationCompletedContent(recipientName, donationTitle)
	return c.send(ctx, toEmail, "Donation completed", EmailLayout(content))
}

// SendDonationCancelled tells a counterpart the donation was cancelled.
func (c *BrevoClient) SendDonationCancelled(ctx context.Context, toEmail, recipientName, donationTitle, reason string) error {
	if c.APIKey == "" {
		return nil
	}
	content := donationCancelledContent(recipientName, donationTitle, reason)
	return c.send(ctx, toEmail, "Donation cancelled", EmailLayout(content))
}

func welcomeContent(userName string) string {
	browseURL := "https://ngoconnect.org/donations"
	return fmt.Sprintf(`
    <h1>Welcome, %s!</h1>
    <p>Thank you for joining <strong>NGO-Connect</strong>. Your account has been successfully created, and you are now part of a community connecting donors with NGOs that can put every contribution to work.</p>
    <center>
      <a href="%s" class="nc-button">Browse Donations</a>
    </center>
    <p style="margin-top: 20px; font-size: 14px; color: #666;">
      If you did not sign up for this account, please contact our support team immediately.
    </p>
    <p>— The NGO-Connect Team</p>
`, EscapeHTML(userName), browseURL)
}

func donationAcceptedContent(donorName, donationTitle, ngoName string) string {
	return fmt.Sprintf(`
    <h1>Good News, %s!</h1>
    <p>Your donation <strong>%s</strong> has been accepted by <strong>%s</strong>. They will coordinate the pickup or drop-off with you shortly.</p>
    <p>You can track the status of your donation from your dashboard at any time.</p>
    <p>— The NGO-Connect Team</p>
`, EscapeHTML(donorName), EscapeHTML(donationTitle), EscapeHTML(ngoName))
}

func donationCompletedContent(recipientName, donationTitle string) string {
	return fmt.Sprintf(`
    <h1>Donation Completed</h1>
    <p>Hi %s,</p>
    <p>The donation <strong>%s</strong> has been marked as completed. Thank you for making a difference.</p>
    <p>— The NGO-Connect Team</p>
`, EscapeHTML(recipientName), EscapeHTML(donationTitle))
}

func donationCancelledContent(recipientName, donationTitle, reason string) string {
	return fmt.Sprintf(`
    <h1>Donation Cancelled</h1>
    <p>Hi %s,</p>
    <p>The donation <strong>%s</strong> has been cancelled by the donor.</p>
    <p>Reason: %s</p>
    <p>— The NGO-Connect Team</p>
`, EscapeHTML(recipientName), EscapeHTML(donationTitle), EscapeHTML(reason))
}
