// Command storybooks serves the story sharing site.
package main

import (
	"github.com/patric-chuzhbe/storybooks/internal/app"
)

func main() {
	storybooks, err := app.New()
	if err != nil {
		panic(err)
	}
	defer storybooks.Close()

	if err := storybooks.Run(); err != nil {
		panic(err)
	}
}
