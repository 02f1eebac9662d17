package donations

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	donsvc "ngoconnect-backend/internal/application/donations"
	"ngoconnect-backend/internal/application/uploads"
	"ngoconnect-backend/internal/middleware"
	"ngoconnect-backend/internal/pkg/apperr"
	"ngoconnect-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxImageCount = 5

type Handlers struct {
	Service *donsvc.Service
}

// createBody is the JSON create/update payload. Multipart requests carry the
// same field names as form values.
type createBody struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Quantity     string   `json:"quantity"`
	Category     string   `json:"category"`
	Address      string   `json:"address"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	PickupOption string   `json:"pickup_option"`
	Urgency      string   `json:"urgency"`
	FoodExpiry   string   `json:"food_expiry"`
	Amount       *float64 `json:"amount"`
}

// POST /api/v1/donations/create-donation — multipart (with images) or JSON
func (h *Handlers) CreateDonation(c *fiber.Ctx) error {
	actor, err := sessionActor(c)
	if err != nil {
		return response.Error(c, "Unauthorized", 401, nil)
	}

	var in donsvc.CreateDonationInput
	if strings.HasPrefix(c.Get("Content-Type"), "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			return response.Error(c, "Invalid multipart form", 400, nil)
		}
		in = inputFromForm(form)
		files, err := formImages(form)
		if err != nil {
			return respondErr(c, err)
		}
		in.Images = files
	} else {
		var body createBody
		if err := c.BodyParser(&body); err != nil {
			return response.Error(c, "Invalid request body", 400, nil)
		}
		in = donsvc.CreateDonationInput{
			Title:        body.Title,
			Description:  body.Description,
			Quantity:     body.Quantity,
			Category:     body.Category,
			Address:      body.Address,
			Latitude:     body.Latitude,
			Longitude:    body.Longitude,
			PickupOption: body.PickupOption,
			Urgency:      body.Urgency,
			FoodExpiry:   body.FoodExpiry,
			Amount:       body.Amount,
		}
	}

	donation, err := h.Service.CreateDonation(c.Context(), actor.ID, in)
	if err != nil {
		return respondErr(c, err)
	}
	return response.SuccessCreated(c, "Donation created successfully", donation, nil)
}

// GET /api/v1/donations/search — public browse with filters and pagination
func (h *Handlers) SearchDonations(c *fiber.Ctx) error {
	filters := donsvc.SearchFilters{
		Category: c.Query("category"),
		Urgency:  c.Query("urgency"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
	}
	if lat, err := strconv.ParseFloat(c.Query("lat"), 64); err == nil {
		filters.Lat = &lat
	}
	if lng, err := strconv.ParseFloat(c.Query("lng"), 64); err == nil {
		filters.Lng = &lng
	}
	if radius, err := strconv.ParseFloat(c.Query("radius_km"), 64); err == nil {
		filters.RadiusKm = &radius
	}
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	result, err := h.Service.SearchAvailable(c.Context(), filters, donsvc.Pagination{Page: page, Limit: limit})
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Donations fetched successfully", result.Donations, result.Pagination)
}

// GET /api/v1/donations/get-donation/:donation_id
func (h *Handlers) GetDonation(c *fiber.Ctx) error {
	donationID, err := paramDonationID(c)
	if err != nil {
		return response.Error(c, "Invalid donation_id format", 400, nil)
	}
	donation, err := h.Service.GetDonation(c.Context(), donationID)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Donation fetched successfully", donation, nil)
}

// PUT /api/v1/donations/update-donation/:donation_id
func (h *Handlers) UpdateDonation(c *fiber.Ctx) error {
	actor, err := sessionActor(c)
	if err != nil {
		return response.Error(c, "Unauthorized", 401, nil)
	}
	donationID, err := paramDonationID(c)
	if err != nil {
		return response.Error(c, "Invalid donation_id format", 400, nil)
	}

	var body struct {
		Title        *string  `json:"title"`
		Description  *string  `json:"description"`
		Quantity     *string  `json:"quantity"`
		PickupOption *string  `json:"pickup_option"`
		Urgency      *string  `json:"urgency"`
		Address      *string  `json:"address"`
		Latitude     *float64 `json:"latitude"`
		Longitude    *float64 `json:"longitude"`
		FoodExpiry   *string  `json:"food_expiry"`
		Category     *string  `json:"category"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}

	donation, err := h.Service.UpdateDonation(c.Context(), actor.ID, donationID, donsvc.UpdateDonationInput{
		Title:        body.Title,
		Description:  body.Description,
		Quantity:     body.Quantity,
		PickupOption: body.PickupOption,
		Urgency:      body.Urgency,
		Address:      body.Address,
		Latitude:     body.Latitude,
		Longitude:    body.Longitude,
		FoodExpiry:   body.FoodExpiry,
		Category:     body.Category,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Donation updated successfully", donation, nil)
}

// DELETE /api/v1/donations/delete-donation/:donation_id
func (h *Handlers) DeleteDonation(c *fiber.Ctx) error {
	actor, err := sessionActor(c)
	if err != nil {
		return response.Error(c, "Unauthorized", 401, nil)
	}
	donationID, err := paramDonationID(c)
	if err != nil {
		return response.Error(c, "Invalid donation_id format", 400, nil)
	}
	id, err := h.Service.DeleteDonation(c.Context(), actor.ID, donationID)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Donation deleted successfully", fiber.Map{"donation_id": id}, nil)
}

// PATCH /api/v1/donations/update-status/:donation_id — lifecycle transitions
func (h *Handlers) UpdateStatus(c *fiber.Ctx) error {
	actor, err := sessionActor(c)
	if err != nil {
		return response.Error(c, "Unauthorized", 401, nil)
	}
	donationID, err := paramDonationID(c)
	if err != nil {
		return response.Error(c, "Invalid donation_id format", 400, nil)
	}

	var body struct {
		Status             string `json:"status"`
		CancellationReason string `json:"cancellation_reason"`
	}
	if err := c.BodyParser(&body); err != nil || body.Status == "" {
		return response.Error(c, "status is required", 400, nil)
	}

	donation, err := h.Service.TransitionStatus(c.Context(), actor, donationID, body.Status, body.CancellationReason)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, fmt.Sprintf("Donation marked as %s", donation.Status), donation, nil)
}

// POST /api/v1/donations/reject/:donation_id — NGO declines without locking
func (h *Handlers) RejectDonation(c *fiber.Ctx) error {
	actor, err := sessionActor(c)
	if err != nil {
		return response.Error(c, "Unauthorized", 401, nil)
	}
	donationID, err := paramDonationID(c)
	if err != nil {
		return response.Error(c, "Invalid donation_id format", 400, nil)
	}
	donation, err := h.Service.RejectDonation(c.Context(), actor, donationID)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Donation rejected", donation, nil)
}

// GET /api/v1/donations/timeline/:donation_id
func (h *Handlers) GetTimeline(c *fiber.Ctx) error {
	donationID, err := paramDonationID(c)
	if err != nil {
		return response.Error(c, "Invalid donation_id format", 400, nil)
	}
	entries, err := h.Service.GetTimeline(c.Context(), donationID)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Donation timeline fetched successfully", entries, nil)
}

// GET /api/v1/donations/my-donations — donor's own posts, newest first
func (h *Handlers) GetMyDonations(c *fiber.Ctx) error {
	actor, err := sessionActor(c)
	if err != nil {
		return response.Error(c, "Unauthorized", 401, nil)
	}
	list, err := h.Service.GetDonorDonations(c.Context(), actor.ID)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Donations fetched successfully", list, nil)
}

// GET /api/v1/donations/accepted-donations — NGO's open acceptances
func (h *Handlers) GetAcceptedDonations(c *fiber.Ctx) error {
	actor, err := sessionActor(c)
	if err != nil {
		return response.Error(c, "Unauthorized", 401, nil)
	}
	list, err := h.Service.GetAcceptedDonations(c.Context(), actor.ID)
	if err != nil {
		return respondErr(c, err)
	}
	return response.Success(c, "Accepted donations fetched successfully", list, nil)
}

// --- helpers ---

func respondErr(c *fiber.Ctx, err error) error {
	if e, ok := apperr.As(err); ok {
		return response.Error(c, e.Message, apperr.HTTPStatus(err), apperr.Details(err))
	}
	return response.Error(c, "Internal Server Error", 500, nil)
}

func sessionActor(c *fiber.Ctx) (donsvc.Actor, error) {
	user := middleware.GetUser(c)
	m, ok := user.(map[string]interface{})
	if !ok {
		return donsvc.Actor{}, fmt.Errorf("Not authenticated")
	}
	idStr, _ := m["user_id"].(string)
	role, _ := m["role"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return donsvc.Actor{}, fmt.Errorf("Not authenticated")
	}
	return donsvc.Actor{ID: id, Role: role}, nil
}

func paramDonationID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("donation_id"))
}

func inputFromForm(form *multipart.Form) donsvc.CreateDonationInput {
	in := donsvc.CreateDonationInput{
		Title:        formValue(form, "title"),
		Description:  formValue(form, "description"),
		Quantity:     formValue(form, "quantity"),
		Category:     formValue(form, "category"),
		Address:      formValue(form, "address"),
		PickupOption: formValue(form, "pickup_option"),
		Urgency:      formValue(form, "urgency"),
		FoodExpiry:   formValue(form, "food_expiry"),
	}
	if lat, err := strconv.ParseFloat(formValue(form, "latitude"), 64); err == nil {
		in.Latitude = &lat
	}
	if lng, err := strconv.ParseFloat(formValue(form, "longitude"), 64); err == nil {
		in.Longitude = &lng
	}
	if amount, err := strconv.ParseFloat(formValue(form, "amount"), 64); err == nil {
		in.Amount = &amount
	}
	return in
}

func formValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func formImages(form *multipart.Form) ([]uploads.File, error) {
	headers := form.File["images"]
	if len(headers) > maxImageCount {
		return nil, apperr.ValidationField("images", fmt.Sprintf("At most %d images are allowed", maxImageCount))
	}
	files := make([]uploads.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("Failed to read uploaded file: %w", err)
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("Failed to read uploaded file: %w", err)
		}
		files = append(files, uploads.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     content,
		})
	}
	return files, nil
}
