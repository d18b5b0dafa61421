package web

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/godilite/swachh-scan/internal/api"
	"github.com/godilite/swachh-scan/internal/geo"
	"github.com/godilite/swachh-scan/pkg/http/server"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	defaultGeoTimeout = 5 * time.Second

	msgInvalidRating = "Please choose a rating between 1 and 5."
)

// feedbackForm is the posted feedback form. Pick is set when one of the
// rating controls was pressed instead of the submit button.
type feedbackForm struct {
	FacilityName    string `form:"facility_name"`
	FacilityAddress string `form:"facility_address"`
	Rating          string `form:"rating"`
	Pick            string `form:"pick"`
	Comment         string `form:"comment"`
	PhotoURL        string `form:"photo_url"`
	UserLat         string `form:"user_lat"`
	UserLng         string `form:"user_lng"`
}

type ratingInput struct {
	Rating int `validate:"required,min=1,max=5"`
}

type Handlers struct {
	facilities FacilityResolver
	feedback   FeedbackSubmitter
	stats      StatsFetcher
	logger     *zap.Logger
	validate   *validator.Validate
	geoTimeout time.Duration
}

// NewHandlers initializes the view handlers.
func NewHandlers(facilities FacilityResolver, feedback FeedbackSubmitter, stats StatsFetcher, logger *zap.Logger, geoTimeout time.Duration) *Handlers {
	if facilities == nil || feedback == nil || stats == nil {
		panic("nil backend dependency provided to NewHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if geoTimeout <= 0 {
		geoTimeout = defaultGeoTimeout
	}
	return &Handlers{
		facilities: facilities,
		feedback:   feedback,
		stats:      stats,
		logger:     logger.Named("web"),
		validate:   validator.New(),
		geoTimeout: geoTimeout,
	}
}

// Register mounts the three views. The catch-all must stay last.
func (h *Handlers) Register(r fiber.Router) {
	r.Get("/", h.Home)
	r.Get("/f/:code", h.FeedbackForm)
	r.Post("/f/:code", h.SubmitFeedback)
	r.Get("/dashboard", h.Dashboard)
	r.Use(h.NotFound)
}

func (h *Handlers) requestContext(c *fiber.Ctx) context.Context {
	return api.WithRequestID(c.UserContext(), server.RequestID(c))
}

// abandoned reports a request whose context ended while a backend call was
// in flight, which happens when the server stops past its drain deadline.
// The result is dropped and nothing is rendered. A backend timeout is not
// abandonment; it comes back as an ordinary call error.
func (h *Handlers) abandoned(ctx context.Context, op string) error {
	if ctx.Err() == nil {
		return nil
	}
	h.logger.Warn("request abandoned, discarding result", zap.String("op", op), zap.Error(ctx.Err()))
	return fiber.NewError(fiber.StatusServiceUnavailable, "request canceled")
}

func (h *Handlers) Home(c *fiber.Ctx) error {
	return c.Render("home", HomePage{})
}

func (h *Handlers) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).Render("not_found", nil)
}

// FeedbackForm resolves the facility behind a QR code and shows the form.
// A failed lookup is terminal for this page view.
func (h *Handlers) FeedbackForm(c *fiber.Ctx) error {
	code := c.Params("code")
	ctx := h.requestContext(c)

	facility, err := h.facilities.ResolveFacility(ctx, code)
	if cerr := h.abandoned(ctx, "ResolveFacility"); cerr != nil {
		return cerr
	}
	if err != nil {
		h.logger.Info("facility lookup failed", zap.String("code", code), zap.Error(err))
		return c.Status(fiber.StatusNotFound).Render("facility_error", FacilityErrorPage{Message: err.Error()})
	}

	page := newFeedbackPage(code, facility.DisplayName(), facility.Address, defaultRating, h.geoTimeout)
	return c.Render("feedback", page)
}

// SubmitFeedback handles both rating picks and the actual submission.
func (h *Handlers) SubmitFeedback(c *fiber.Ctx) error {
	code := c.Params("code")

	var form feedbackForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form")
	}

	rating, ratingErr := h.parseRating(form.Rating)
	if ratingErr != nil {
		rating = defaultRating
	}
	facility := api.Facility{Code: code, Name: form.FacilityName, Address: form.FacilityAddress}
	page := newFeedbackPage(code, facility.DisplayName(), facility.Address, rating, h.geoTimeout)
	page.Comment = form.Comment
	page.PhotoURL = form.PhotoURL

	if form.Pick != "" {
		picked, err := h.parseRating(form.Pick)
		if err != nil {
			page.Error = msgInvalidRating
			return c.Status(fiber.StatusUnprocessableEntity).Render("feedback", page)
		}
		page.Rating = picked
		page.Controls = ratingControls(picked)
		return c.Render("feedback", page)
	}

	if ratingErr != nil {
		h.logger.Info("rejected feedback with invalid rating", zap.String("code", code), zap.String("rating", form.Rating))
		page.Error = msgInvalidRating
		return c.Status(fiber.StatusUnprocessableEntity).Render("feedback", page)
	}

	ctx := h.requestContext(c)

	pos := geo.Resolve(ctx, geo.FormLocator(form.UserLat, form.UserLng), h.geoTimeout)
	if !pos.Available() {
		h.logger.Debug("submitting without position", zap.String("code", code))
	}

	sub := api.NewFeedbackSubmission(code, rating, form.Comment, form.PhotoURL, pos)
	ack, err := h.feedback.SubmitFeedback(ctx, sub)
	if cerr := h.abandoned(ctx, "SubmitFeedback"); cerr != nil {
		return cerr
	}
	if err != nil {
		h.logger.Warn("feedback submission failed", zap.String("code", code), zap.Error(err))
		page.Error = err.Error()
		return c.Status(fiber.StatusBadGateway).Render("feedback", page)
	}

	h.logger.Debug("feedback acknowledged", zap.String("code", code), zap.Any("ack", ack))
	return c.Render("thanks", nil)
}

func (h *Handlers) parseRating(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	in := ratingInput{Rating: n}
	if err := h.validate.Struct(in); err != nil {
		return 0, err
	}
	return n, nil
}

// Dashboard shows aggregate counters and the leaderboard from one stats
// fetch. On failure only the message is shown.
func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	ctx := h.requestContext(c)

	stats, err := h.stats.FetchStats(ctx)
	if cerr := h.abandoned(ctx, "FetchStats"); cerr != nil {
		return cerr
	}
	if err != nil {
		h.logger.Warn("stats fetch failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).Render("dashboard", DashboardPage{Error: err.Error()})
	}

	return c.Render("dashboard", newDashboardPage(stats))
}
