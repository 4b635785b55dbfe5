package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meethub/internal/handler"
	"github.com/iliyamo/meethub/internal/middleware"
)

// RegisterEvents registers event browsing (public, cached), owner CRUD and
// the favorite/bookmark toggles. cache wraps only the public GETs.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, fav, bm *handler.MarkHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	e.GET("/v1/events", h.List, cache)
	e.GET("/v1/events/:id", h.Get, cache)

	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	g.POST("/events", h.Create)
	g.PUT("/events/:id", h.Update)
	g.DELETE("/events/:id", h.Delete)
	g.GET("/me/events", h.Mine)

	g.GET("/events/:id/favorite", fav.Status)
	g.POST("/events/:id/favorite", fav.Add)
	g.DELETE("/events/:id/favorite", fav.Remove)
	g.GET("/me/favorites", fav.List)

	g.GET("/events/:id/bookmark", bm.Status)
	g.POST("/events/:id/bookmark", bm.Add)
	g.DELETE("/events/:id/bookmark", bm.Remove)
	g.GET("/me/bookmarks", bm.List)
}
