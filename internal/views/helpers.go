package views

import (
	"html/template"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ncruces/go-strftime"

	"github.com/patric-chuzhbe/storybooks/internal/models"
	"github.com/patric-chuzhbe/storybooks/internal/user"
)

// Option is one entry of a <select> element.
type Option struct {
	Value string
	Label string
}

var tagPattern = regexp.MustCompile(`(?s)<.*?>`)

// Helpers returns the functions every template can call.
func Helpers() template.FuncMap {
	return template.FuncMap{
		"formatDate":    FormatDate,
		"stripTags":     StripTags,
		"truncate":      Truncate,
		"editIcon":      EditIcon,
		"select":        Select,
		"timeAgo":       TimeAgo,
		"statusOptions": StatusOptions,
	}
}

// FormatDate formats t with a strftime layout such as "%B %d %Y".
func FormatDate(t time.Time, format string) string {
	if t.IsZero() {
		return ""
	}

	return strftime.Format(format, t)
}

// TimeAgo renders t relative to now, e.g. "3 hours ago".
func TimeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return humanize.Time(t)
}

// StripTags removes everything that looks like a markup tag.
func StripTags(input string) string {
	return tagPattern.ReplaceAllString(input, "")
}

// Truncate shortens text to at most n runes, preferring to cut at the last
// space, and marks the cut with "...". Text that fits is returned unchanged.
func Truncate(text string, n int) string {
	if n < 0 {
		n = 0
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	cut := runes[:n]
	for i := len(cut) - 1; i > 0; i-- {
		if cut[i] == ' ' {
			cut = cut[:i]
			break
		}
	}

	return string(cut) + "..."
}

// EditIcon returns the edit link for a story when the viewer owns it.
func EditIcon(storyUser, currentUser *user.User, storyID string, floating bool) template.HTML {
	if !storyUser.SameAs(currentUser) {
		return ""
	}

	href := "/stories/edit/" + template.HTMLEscapeString(storyID)
	if floating {
		return template.HTML(
			`<a href="` + href + `" class="btn-floating halfway-fab blue"><i class="fas fa-edit fa-small"></i></a>`,
		)
	}

	return template.HTML(`<a href="` + href + `"><i class="fas fa-edit"></i></a>`)
}

// Select renders option tags and marks the ones whose value is value.
func Select(value string, options []Option) template.HTML {
	var b strings.Builder
	for _, option := range options {
		b.WriteString(`<option value="`)
		b.WriteString(template.HTMLEscapeString(option.Value))
		b.WriteString(`"`)
		if option.Value == value {
			b.WriteString(` selected="selected"`)
		}
		b.WriteString(`>`)
		b.WriteString(template.HTMLEscapeString(option.Label))
		b.WriteString(`</option>`)
	}

	return template.HTML(b.String())
}

// StatusOptions lists the story statuses for the add and edit forms.
func StatusOptions() []Option {
	options := make([]Option, 0, len(models.Statuses))
	for _, status := range models.Statuses {
		options = append(options, Option{Value: status, Label: strings.ToUpper(status[:1]) + status[1:]})
	}

	return options
}
