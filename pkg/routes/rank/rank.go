package rank

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/reuniteio/reunite/pkg/matching"
	"github.com/reuniteio/reunite/pkg/models"
)

var validate = validator.New()

// Register registers ranking routes
func Register(g *echo.Group) {
	g.POST("", Rank)
}

// Rank scores candidates for an item on demand. Persist=false previews the
// ranking without touching stored matches; Persist=true also upserts every
// result above the persistence threshold.
func Rank(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.RankRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, service, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	opts := matching.RankOptions{}
	if req.TopK != nil {
		opts.TopK = *req.TopK
	}

	var result *matching.RankResult
	if req.Persist {
		result, err = service.RankAndPersist(ctx, req.ItemID, opts)
	} else {
		result, err = service.Rank(ctx, req.ItemID, opts)
	}
	if err != nil {
		switch {
		case errors.Is(err, matching.ErrItemNotFound):
			return httperror.NewHTTPError(http.StatusNotFound, "item not found")
		case errors.Is(err, matching.ErrItemNotMatchable):
			return httperror.NewHTTPError(http.StatusBadRequest, "item is not in a matchable state")
		}
		return err
	}

	resp := models.RankResponse{
		QueryItemID: req.ItemID,
		Results:     result.Results,
		TotalScored: result.TotalScored,
		Persisted:   result.Persisted,
	}
	if resp.Results == nil {
		resp.Results = []models.MatchCandidate{}
	}

	return c.JSON(http.StatusOK, resp)
}
