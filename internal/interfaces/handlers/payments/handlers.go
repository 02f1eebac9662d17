package payments

import (
	"math"
	"strconv"

	"ngoconnect-backend/internal/domain"
	"ngoconnect-backend/internal/middleware"
	"ngoconnect-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"gorm.io/gorm"
)

type Handlers struct {
	DB            *gorm.DB
	StripeCreator StripePaymentIntentCreator
}

// StripePaymentIntentCreator abstracts Stripe PaymentIntent creation for testability.
type StripePaymentIntentCreator interface {
	Create(amountCents int64, currency string, metadata map[string]string) (*StripePaymentIntentResult, error)
}

type StripePaymentIntentResult struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// RealStripeCreator uses the Stripe Go SDK to create PaymentIntents.
type RealStripeCreator struct {
	SecretKey string
}

func (r *RealStripeCreator) Create(amountCents int64, currency string, metadata map[string]string) (*StripePaymentIntentResult, error) {
	if r.SecretKey == "" {
		return nil, fiber.NewError(501, "Stripe integration pending")
	}
	stripe.Key = r.SecretKey
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		Metadata: metadata,
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return &StripePaymentIntentResult{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
	}, nil
}

// CreateIntent POST /api/v1/payments/create-intent — ONLY creates the Stripe
// PaymentIntent for a financial donation. Fulfilment happens in the webhook.
func (h *Handlers) CreateIntent(c *fiber.Ctx) error {
	var body struct {
		DonationID string `json:"donation_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.DonationID == "" {
		return response.Error(c, "donation_id is required", 400, nil)
	}
	donationID, err := uuid.Parse(body.DonationID)
	if err != nil {
		return response.Error(c, "Invalid donation_id format", 400, nil)
	}

	donorID := sessionUserID(c)
	if donorID == "" {
		return response.Error(c, "Unauthorized", 401, nil)
	}

	var donation domain.Donation
	if err := h.DB.Where("donation_id = ?", donationID).First(&donation).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.Error(c, "Donation not found", 404, nil)
		}
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	if donation.Category != domain.CategoryFinancial || donation.Amount == nil {
		return response.Error(c, "Only financial donations can be paid", 400, nil)
	}

	if h.StripeCreator == nil {
		return response.Error(c, "Stripe not configured", 500, nil)
	}

	amountCents := int64(math.Round(*donation.Amount * 100))
	pi, err := h.StripeCreator.Create(amountCents, "inr", map[string]string{
		"donation_id": donation.DonationID.String(),
		"donor_id":    donorID,
		"amount":      strconv.FormatFloat(*donation.Amount, 'f', 2, 64),
	})
	if err != nil {
		code := 500
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		return response.Error(c, err.Error(), code, nil)
	}

	return response.Success(c, "Payment intent created", fiber.Map{
		"payment_intent_id": pi.ID,
		"client_secret":     pi.ClientSecret,
	}, nil)
}

func sessionUserID(c *fiber.Ctx) string {
	user := middleware.GetUser(c)
	m, ok := user.(map[string]interface{})
	if !ok {
		return ""
	}
	id, _ := m["user_id"].(string)
	return id
}
