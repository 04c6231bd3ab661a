// Package service holds the story rules that do not depend on HTTP:
// ownership, visibility and form validation.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/thoas/go-funk"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/storybooks/internal/models"
	"github.com/patric-chuzhbe/storybooks/internal/user"
)

type storiesKeeper interface {
	CreateStory(ctx context.Context, story *models.Story) error
	GetStory(ctx context.Context, id primitive.ObjectID) (*models.Story, error)
	UpdateStory(ctx context.Context, story *models.Story) error
	DeleteStory(ctx context.Context, id primitive.ObjectID) error
	ListStoriesByUser(ctx context.Context, userID primitive.ObjectID, publicOnly bool) ([]models.Story, error)
	ListPublicStories(ctx context.Context, author *primitive.ObjectID) ([]models.PopulatedStory, error)
	CountStories(ctx context.Context) (int64, error)
}

type usersKeeper interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*user.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	storiesKeeper
	usersKeeper
	pinger
}

var (
	// ErrNotFound is returned for missing stories and for private stories of
	// other users.
	ErrNotFound = models.ErrNotFound

	// ErrForbidden is returned when a user touches a story they do not own.
	ErrForbidden = errors.New("story belongs to another user")

	// ErrInvalidID is returned for identifiers that are not ObjectIDs.
	ErrInvalidID = errors.New("invalid identifier")
)

// ValidationError lists human readable problems with a submitted form.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "invalid story: " + strings.Join(e.Messages, "; ")
}

type Service struct {
	db       storage
	validate *validator.Validate
	now      func() time.Time
}

func New(db storage) *Service {
	return &Service{
		db:       db,
		validate: validator.New(),
		now:      time.Now,
	}
}

// ParseID converts a path parameter into an ObjectID.
func ParseID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}

	return id, nil
}

// Dashboard returns every story of owner, private ones included.
func (s *Service) Dashboard(ctx context.Context, owner *user.User) ([]models.Story, error) {
	return s.db.ListStoriesByUser(ctx, owner.ID, false)
}

// PublicStories returns all public stories with their authors, newest first.
func (s *Service) PublicStories(ctx context.Context) ([]models.PopulatedStory, error) {
	return s.db.ListPublicStories(ctx, nil)
}

// UserStories returns the public stories of one user. The author is nil when
// the user is unknown; the list is then empty.
func (s *Service) UserStories(ctx context.Context, rawUserID string) (*user.User, []models.PopulatedStory, error) {
	userID, err := ParseID(rawUserID)
	if err != nil {
		return nil, nil, err
	}

	author, err := s.db.GetUserByID(ctx, userID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, nil, err
	}

	stories, err := s.db.ListPublicStories(ctx, &userID)
	if err != nil {
		return nil, nil, err
	}

	return author, stories, nil
}

// Create validates form and stores a new story owned by owner.
func (s *Service) Create(ctx context.Context, owner *user.User, form models.StoryForm) (*models.Story, error) {
	form = normalize(form)
	if err := s.check(form); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	story := &models.Story{
		Title:     form.Title,
		Body:      form.Body,
		Status:    form.Status,
		User:      owner.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.CreateStory(ctx, story); err != nil {
		return nil, fmt.Errorf("create story: %w", err)
	}

	return story, nil
}

// Show returns a story for viewer. Private stories are only visible to
// their owner; everybody else gets ErrNotFound.
func (s *Service) Show(ctx context.Context, viewer *user.User, rawID string) (*models.PopulatedStory, error) {
	story, err := s.story(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !story.IsPublic() && !owns(viewer, story) {
		return nil, ErrNotFound
	}

	author, err := s.db.GetUserByID(ctx, story.User)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	return &models.PopulatedStory{Story: *story, Author: author}, nil
}

// ForEdit returns a story its owner is about to edit.
func (s *Service) ForEdit(ctx context.Context, viewer *user.User, rawID string) (*models.Story, error) {
	story, err := s.story(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !owns(viewer, story) {
		return nil, ErrForbidden
	}

	return story, nil
}

// Update replaces title, body and status of an owned story.
func (s *Service) Update(
	ctx context.Context,
	viewer *user.User,
	rawID string,
	form models.StoryForm,
) (*models.Story, error) {
	story, err := s.ForEdit(ctx, viewer, rawID)
	if err != nil {
		return nil, err
	}

	form = normalize(form)
	if err := s.check(form); err != nil {
		return nil, err
	}

	story.Title = form.Title
	story.Body = form.Body
	story.Status = form.Status
	story.UpdatedAt = s.now().UTC()
	if err := s.db.UpdateStory(ctx, story); err != nil {
		return nil, fmt.Errorf("update story: %w", err)
	}

	return story, nil
}

// Delete removes an owned story.
func (s *Service) Delete(ctx context.Context, viewer *user.User, rawID string) error {
	story, err := s.ForEdit(ctx, viewer, rawID)
	if err != nil {
		return err
	}

	return s.db.DeleteStory(ctx, story.ID)
}

// Stats counts users and stories.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	users, err := s.db.CountUsers(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	stories, err := s.db.CountStories(ctx)
	if err != nil {
		return models.Stats{}, err
	}

	return models.Stats{Users: users, Stories: stories}, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Service) story(ctx context.Context, rawID string) (*models.Story, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}

	return s.db.GetStory(ctx, id)
}

func (s *Service) check(form models.StoryForm) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	return &ValidationError{
		Messages: funk.Map(fieldErrors, func(fieldError validator.FieldError) string {
			return describe(fieldError)
		}).([]string),
	}
}

func describe(fieldError validator.FieldError) string {
	switch fieldError.Tag() {
	case "required":
		return fieldError.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fieldError.Field(), fieldError.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fieldError.Field(), strings.Join(models.Statuses, ", "))
	default:
		return fieldError.Field() + " is invalid"
	}
}

// normalize trims the form and applies the default status.
func normalize(form models.StoryForm) models.StoryForm {
	form.Title = strings.TrimSpace(form.Title)
	form.Status = strings.ToLower(strings.TrimSpace(form.Status))
	if form.Status == "" {
		form.Status = models.StatusPublic
	}
	if strings.TrimSpace(form.Body) == "" {
		form.Body = ""
	}

	return form
}

func owns(viewer *user.User, story *models.Story) bool {
	return viewer != nil && !story.User.IsZero() && viewer.ID == story.User
}
