package views

import "github.com/patric-chuzhbe/storybooks/internal/models"

// Page names.
const (
	PageLogin       = "login"
	PageDashboard   = "dashboard"
	PageStories     = "stories/index"
	PageStoryAdd    = "stories/add"
	PageStoryEdit   = "stories/edit"
	PageStoryShow   = "stories/show"
	PageNotFound    = "error/404"
	PageServerError = "error/500"
)

type DashboardPage struct {
	Stories []models.Story
}

// StoriesPage lists public stories. Heading names whose stories they are
// when the list is filtered by author.
type StoriesPage struct {
	Heading string
	Stories []models.PopulatedStory
}

type StoryPage struct {
	Story *models.PopulatedStory
}

// FormPage backs both the add and the edit form. ID is empty when adding.
type FormPage struct {
	ID     string
	Form   models.StoryForm
	Errors []string
}
