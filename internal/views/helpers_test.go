package views

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/patric-chuzhbe/storybooks/internal/user"
)

func TestTruncate(t *testing.T) {
	testCases := []struct {
		name string
		text string
		n    int
		want string
	}{
		{name: "fits", text: "short text", n: 20, want: "short text"},
		{name: "exact_length", text: "abcde", n: 5, want: "abcde"},
		{name: "cuts_at_last_space", text: "the quick brown fox", n: 12, want: "the quick..."},
		{name: "hard_cut_without_space", text: "abcdefghij", n: 4, want: "abcd..."},
		{name: "leading_space_is_not_a_cut_point", text: " abcdefghij", n: 5, want: " abcd..."},
		{name: "multibyte", text: "привет мир и всё", n: 9, want: "привет..."},
		{name: "zero", text: "abc", n: 0, want: "..."},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.want, Truncate(testCase.text, testCase.n))
		})
	}
}

func TestTruncateNeverExceedsLimit(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 20)
	for n := 0; n < utf8.RuneCountInString(text)+5; n++ {
		got := Truncate(text, n)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), n+3, "n=%d", n)
	}
}

func TestStripTags(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "no markup", want: "no markup"},
		{name: "paragraph", input: "<p>Hello <b>world</b></p>", want: "Hello world"},
		{name: "multiline_tag", input: "a<span\nclass=\"x\">b</span>", want: "ab"},
		{name: "unclosed", input: "1 < 2", want: "1 < 2"},
		{name: "nested_brackets", input: "<<x>y>", want: "y>"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got := StripTags(testCase.input)
			assert.Equal(t, testCase.want, got)
			assert.Equal(t, got, StripTags(got), "stripping twice changes nothing")
		})
	}
}

func TestEditIcon(t *testing.T) {
	owner := &user.User{ID: primitive.NewObjectID()}
	ownerCopy := &user.User{ID: owner.ID}
	stranger := &user.User{ID: primitive.NewObjectID()}

	testCases := []struct {
		name     string
		author   *user.User
		viewer   *user.User
		storyID  string
		floating bool
		want     string
	}{
		{
			name:     "owner_floating",
			author:   owner,
			viewer:   ownerCopy,
			storyID:  "abc",
			floating: true,
			want:     `<a href="/stories/edit/abc" class="btn-floating halfway-fab blue"><i class="fas fa-edit fa-small"></i></a>`,
		},
		{
			name:    "owner_inline",
			author:  owner,
			viewer:  owner,
			storyID: "abc",
			want:    `<a href="/stories/edit/abc"><i class="fas fa-edit"></i></a>`,
		},
		{name: "stranger", author: owner, viewer: stranger, storyID: "abc", want: ""},
		{name: "anonymous", author: owner, viewer: nil, storyID: "abc", want: ""},
		{name: "no_author", author: nil, viewer: owner, storyID: "abc", want: ""},
		{
			name:    "escaped_id",
			author:  owner,
			viewer:  owner,
			storyID: `"><script>`,
			want:    `<a href="/stories/edit/&#34;&gt;&lt;script&gt;"><i class="fas fa-edit"></i></a>`,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got := EditIcon(testCase.author, testCase.viewer, testCase.storyID, testCase.floating)
			assert.Equal(t, testCase.want, string(got))
		})
	}
}

func TestSelect(t *testing.T) {
	got := string(Select("private", StatusOptions()))

	assert.Equal(
		t,
		`<option value="public">Public</option><option value="private" selected="selected">Private</option>`,
		got,
	)
	assert.Equal(t, 1, strings.Count(got, "selected"))
	assert.NotContains(t, string(Select("draft", StatusOptions())), "selected")
}

func TestFormatDate(t *testing.T) {
	moment := time.Date(2020, time.March, 7, 15, 4, 5, 0, time.UTC)

	assert.Equal(t, "March 07 2020", FormatDate(moment, "%B %d %Y"))
	assert.Equal(t, "2020-03-07 15:04", FormatDate(moment, "%Y-%m-%d %H:%M"))
	assert.Empty(t, FormatDate(time.Time{}, "%Y"))
}

func TestTimeAgo(t *testing.T) {
	assert.Equal(t, "2 hours ago", TimeAgo(time.Now().Add(-2*time.Hour-time.Minute)))
	assert.Empty(t, TimeAgo(time.Time{}))
}
