package feedback

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	feedbackrepo "github.com/reuniteio/reunite/internal/repositories/feedback"
	matchrepo "github.com/reuniteio/reunite/internal/repositories/match"
	"github.com/reuniteio/reunite/pkg/models"
	"github.com/reuniteio/reunite/pkg/weights"
)

var validate = validator.New()

// Register registers feedback routes
func Register(g *echo.Group) {
	g.POST("", Create)
}

// Create records an accept/reject judgement on a match and feeds it to the
// weight tuner. The judgement is kept even when tuning is disabled so the
// tuner can be seeded from history on the next boot.
func Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CreateFeedbackRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, matches, err := ectoinject.GetContext[*matchrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	// 404s before anything is written
	if _, err := matches.Get(ctx, req.MatchID); err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*feedbackrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, &models.MatchFeedback{
		MatchID:  req.MatchID,
		Accepted: *req.Accepted,
		Source:   req.Source,
	})
	if err != nil {
		return err
	}

	if _, tuner, err := ectoinject.GetContext[*weights.Tuner](ctx); err == nil && tuner != nil {
		tuner.Record(created.Accepted)
	}

	return c.JSON(http.StatusCreated, created)
}
