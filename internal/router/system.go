package router

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/storybooks/internal/logger"
)

func (router *Router) getPing(response http.ResponseWriter, request *http.Request) {
	if err := router.service.Ping(request.Context()); err != nil {
		logger.Log.Warnw("storage ping failed", zap.Error(err))
		http.Error(response, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

func (router *Router) getInternalStats(response http.ResponseWriter, request *http.Request) {
	stats, err := router.service.Stats(request.Context())
	if err != nil {
		logger.Log.Errorw("collecting stats failed", zap.Error(err))
		http.Error(response, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(response).Encode(stats); err != nil {
		logger.Log.Debugw("writing stats response failed", zap.Error(err))
	}
}
