package memorystorage

import (
	"testing"

	"github.com/patric-chuzhbe/storybooks/internal/db/storagetest"
)

func Test(t *testing.T) {
	storagetest.Run(t, New())
}
