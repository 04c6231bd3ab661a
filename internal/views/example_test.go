package views_test

import (
	"fmt"

	"github.com/patric-chuzhbe/storybooks/internal/views"
)

func ExampleTruncate() {
	fmt.Println(views.Truncate("Once upon a time there was a story", 16))
	fmt.Println(views.Truncate("Short", 16))

	// Output:
	// Once upon a...
	// Short
}

func ExampleStripTags() {
	fmt.Println(views.StripTags("<p>It was a <em>dark</em> and stormy night</p>"))

	// Output:
	// It was a dark and stormy night
}

func ExampleSelect() {
	fmt.Println(views.Select("public", views.StatusOptions()))

	// Output:
	// <option value="public" selected="selected">Public</option><option value="private">Private</option>
}
