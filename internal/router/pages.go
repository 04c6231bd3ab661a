package router

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/storybooks/internal/logger"
	"github.com/patric-chuzhbe/storybooks/internal/requestctx"
	"github.com/patric-chuzhbe/storybooks/internal/service"
	"github.com/patric-chuzhbe/storybooks/internal/views"
)

func (router *Router) getIndex(response http.ResponseWriter, request *http.Request) {
	router.views.RenderWithLayout(response, request, http.StatusOK, views.LayoutLogin, views.PageLogin, nil)
}

func (router *Router) getDashboard(response http.ResponseWriter, request *http.Request) {
	stories, err := router.service.Dashboard(request.Context(), requestctx.User(request.Context()))
	if err != nil {
		router.failure(response, request, err)
		return
	}

	router.views.Render(response, request, http.StatusOK, views.PageDashboard, views.DashboardPage{
		Stories: stories,
	})
}

func (router *Router) notFound(response http.ResponseWriter, request *http.Request) {
	router.views.Render(response, request, http.StatusNotFound, views.PageNotFound, nil)
}

// failure renders the page matching err: 404 for unknown or malformed ids,
// 500 for everything else.
func (router *Router) failure(response http.ResponseWriter, request *http.Request, err error) {
	if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrInvalidID) {
		router.notFound(response, request)
		return
	}

	logger.Log.Errorw("request failed", "method", request.Method, "uri", request.RequestURI, zap.Error(err))
	router.views.Render(response, request, http.StatusInternalServerError, views.PageServerError, nil)
}
