package crawl

import (
	"time"

	"github.com/your-org/jailcrawler/internal/models"
)

func testProfile(first, key string) *models.Profile {
	return &models.Profile{
		FirstName:   first,
		LastName:    "Doe",
		DateOfBirth: time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC),
		BookedAt:    time.Date(2024, 6, 1, 18, 45, 0, 0, time.UTC),
		NaturalKey:  &key,
	}
}
