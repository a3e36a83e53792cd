package match

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	itemrepo "github.com/reuniteio/reunite/internal/repositories/item"
	matchrepo "github.com/reuniteio/reunite/internal/repositories/match"
	"github.com/reuniteio/reunite/pkg/events"
	"github.com/reuniteio/reunite/pkg/graph"
	"github.com/reuniteio/reunite/pkg/models"
)

// Register registers match review routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.GET("/related", Related)
	g.GET("/:id", Get)
	g.POST("/:id/viewed", MarkViewed)
	g.POST("/:id/dismissed", Dismiss)
	g.POST("/:id/claimed", Claim)
}

// List returns matches involving an item, strongest first
func List(c echo.Context) error {
	ctx := c.Request().Context()

	itemID := c.QueryParam("item_id")
	if itemID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "item_id query parameter is required")
	}

	status := c.QueryParam("status")
	if status != "" && !models.ValidMatchStatus(models.MatchStatus(status)) {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid status filter")
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	ctx, repo, err := ectoinject.GetContext[*matchrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	matches, err := repo.ListByItem(ctx, itemID, status, limit)
	if err != nil {
		return err
	}
	if matches == nil {
		matches = []models.Match{}
	}

	return c.JSON(http.StatusOK, models.MatchListResponse{
		Matches:    matches,
		TotalCount: len(matches),
	})
}

// Related returns item IDs connected to an item through claimed matches in
// the graph projection, strongest edge first
func Related(c echo.Context) error {
	ctx := c.Request().Context()

	itemID := c.QueryParam("item_id")
	if itemID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "item_id query parameter is required")
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	ctx, projection, err := ectoinject.GetContext[*graph.ProjectionService](ctx)
	if err != nil || projection == nil {
		return httperror.NewHTTPError(http.StatusServiceUnavailable, "graph projection is not enabled")
	}

	related, err := projection.MatchedItemIDs(ctx, itemID, limit)
	if err != nil {
		return err
	}
	if related == nil {
		related = []string{}
	}

	return c.JSON(http.StatusOK, models.RelatedItemsResponse{
		ItemID:         itemID,
		RelatedItemIDs: related,
	})
}

// Get returns a match by ID
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*matchrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	found, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, found)
}

// MarkViewed records that the owner has seen the match
func MarkViewed(c echo.Context) error {
	return updateStatus(c, models.MatchStatusViewed)
}

// Dismiss records that the owner rejected the match
func Dismiss(c echo.Context) error {
	return updateStatus(c, models.MatchStatusDismissed)
}

// Claim records that the owner confirmed the match. A claim also publishes a
// match.claimed event and projects the pair into the graph; both are best
// effort once the status change is stored.
func Claim(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*matchrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := repo.UpdateStatus(ctx, id, models.MatchStatusClaimed)
	if err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)

	if ctx2, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil && emitter != nil {
		if err := emitter.EmitMatchClaimed(ctx2, updated); err != nil && logger != nil {
			logger.WithContext(ctx).WithError(err).WithField("match_id", updated.ID).Warn("Failed to publish match claimed event")
		}
	}

	projectClaim(c, updated, logger)

	return c.JSON(http.StatusOK, updated)
}

func updateStatus(c echo.Context, status models.MatchStatus) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*matchrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

func projectClaim(c echo.Context, match *models.Match, logger ectologger.Logger) {
	ctx := c.Request().Context()

	ctx, projection, err := ectoinject.GetContext[*graph.ProjectionService](ctx)
	if err != nil || projection == nil {
		return
	}

	ctx, items, err := ectoinject.GetContext[*itemrepo.Repository](ctx)
	if err != nil {
		return
	}

	lost, err := items.Get(ctx, match.LostItemID)
	if err != nil {
		lost = nil
	}
	found, err := items.Get(ctx, match.FoundItemID)
	if err != nil {
		found = nil
	}

	if err := projection.ProjectMatch(ctx, match, lost, found); err != nil && logger != nil {
		logger.WithContext(ctx).WithError(err).WithField("match_id", match.ID).Warn("Failed to project claimed match into graph")
	}
}
