package router

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/patric-chuzhbe/storybooks/internal/models"
	"github.com/patric-chuzhbe/storybooks/internal/requestctx"
	"github.com/patric-chuzhbe/storybooks/internal/service"
	"github.com/patric-chuzhbe/storybooks/internal/views"
)

func storyFormFromRequest(request *http.Request) models.StoryForm {
	return models.StoryForm{
		Title:  request.PostForm.Get("title"),
		Body:   request.PostForm.Get("body"),
		Status: request.PostForm.Get("status"),
	}
}

func (router *Router) getStoriesAdd(response http.ResponseWriter, request *http.Request) {
	router.views.Render(response, request, http.StatusOK, views.PageStoryAdd, views.FormPage{
		Form: models.StoryForm{Status: models.StatusPublic},
	})
}

func (router *Router) postStories(response http.ResponseWriter, request *http.Request) {
	form := storyFormFromRequest(request)

	_, err := router.service.Create(request.Context(), requestctx.User(request.Context()), form)
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		router.views.Render(response, request, http.StatusUnprocessableEntity, views.PageStoryAdd, views.FormPage{
			Form:   form,
			Errors: validationErr.Messages,
		})
		return
	}
	if err != nil {
		router.failure(response, request, err)
		return
	}

	http.Redirect(response, request, "/dashboard", http.StatusFound)
}

func (router *Router) getStories(response http.ResponseWriter, request *http.Request) {
	stories, err := router.service.PublicStories(request.Context())
	if err != nil {
		router.failure(response, request, err)
		return
	}

	router.views.Render(response, request, http.StatusOK, views.PageStories, views.StoriesPage{
		Stories: stories,
	})
}

func (router *Router) getStory(response http.ResponseWriter, request *http.Request) {
	story, err := router.service.Show(
		request.Context(),
		requestctx.User(request.Context()),
		chi.URLParam(request, "id"),
	)
	if err != nil {
		router.failure(response, request, err)
		return
	}

	router.views.Render(response, request, http.StatusOK, views.PageStoryShow, views.StoryPage{
		Story: story,
	})
}

func (router *Router) getStoryEdit(response http.ResponseWriter, request *http.Request) {
	story, err := router.service.ForEdit(
		request.Context(),
		requestctx.User(request.Context()),
		chi.URLParam(request, "id"),
	)
	if errors.Is(err, service.ErrForbidden) {
		http.Redirect(response, request, "/stories", http.StatusFound)
		return
	}
	if err != nil {
		router.failure(response, request, err)
		return
	}

	router.views.Render(response, request, http.StatusOK, views.PageStoryEdit, views.FormPage{
		ID: story.ID.Hex(),
		Form: models.StoryForm{
			Title:  story.Title,
			Body:   story.Body,
			Status: story.Status,
		},
	})
}

func (router *Router) putStory(response http.ResponseWriter, request *http.Request) {
	storyID := chi.URLParam(request, "id")
	form := storyFormFromRequest(request)

	_, err := router.service.Update(request.Context(), requestctx.User(request.Context()), storyID, form)
	var validationErr *service.ValidationError
	switch {
	case err == nil:
		http.Redirect(response, request, "/dashboard", http.StatusFound)
	case errors.Is(err, service.ErrForbidden):
		http.Redirect(response, request, "/stories", http.StatusFound)
	case errors.As(err, &validationErr):
		router.views.Render(response, request, http.StatusUnprocessableEntity, views.PageStoryEdit, views.FormPage{
			ID:     storyID,
			Form:   form,
			Errors: validationErr.Messages,
		})
	default:
		router.failure(response, request, err)
	}
}

func (router *Router) deleteStory(response http.ResponseWriter, request *http.Request) {
	err := router.service.Delete(
		request.Context(),
		requestctx.User(request.Context()),
		chi.URLParam(request, "id"),
	)
	switch {
	case err == nil:
		http.Redirect(response, request, "/dashboard", http.StatusFound)
	case errors.Is(err, service.ErrForbidden):
		http.Redirect(response, request, "/stories", http.StatusFound)
	default:
		router.failure(response, request, err)
	}
}

func (router *Router) getUserStories(response http.ResponseWriter, request *http.Request) {
	author, stories, err := router.service.UserStories(request.Context(), chi.URLParam(request, "userID"))
	if err != nil {
		router.failure(response, request, err)
		return
	}

	page := views.StoriesPage{Stories: stories}
	if author != nil {
		page.Heading = "Stories by " + author.DisplayName
	}
	router.views.Render(response, request, http.StatusOK, views.PageStories, page)
}
