package collection

import (
	"fmt"
	"strings"
)

// Describe converts a record and its resolved creator into the canonical flat
// text used as embedding input. Present fields are concatenated in a fixed
// order; missing fields are omitted rather than placeholder-filled, so the
// same record always yields the same text.
func Describe(r Record, creators CreatorTable) string {
	var parts []string

	if r.Title != "" {
		parts = append(parts, "Title: "+r.Title)
	}

	artist := r.Artist
	if artist == "" {
		artist = Unknown
	}
	parts = append(parts, "Artist: "+artist)

	if creator, ok := r.PrimaryCreator(creators); ok {
		if creator.Nationality != "" {
			parts = append(parts, "Nationality: "+creator.Nationality)
		}
		if creator.Gender != "" {
			parts = append(parts, "Gender: "+creator.Gender)
		}
		if creator.BeginDate != 0 {
			parts = append(parts, fmt.Sprintf("Artist born: %d", creator.BeginDate))
		}
	}

	if r.Date != "" {
		parts = append(parts, "Date created: "+r.Date)
	}
	if r.Medium != "" {
		parts = append(parts, "Medium: "+r.Medium)
	}
	if r.Dimensions != "" {
		parts = append(parts, "Dimensions: "+r.Dimensions)
	}
	if r.Classification != "" {
		parts = append(parts, "Classification: "+r.Classification)
	}
	if r.Department != "" {
		parts = append(parts, "Department: "+r.Department)
	}
	if r.DateAcquired != "" {
		parts = append(parts, "Acquired: "+r.DateAcquired)
	}
	if r.CreditLine != "" {
		parts = append(parts, "Credit: "+r.CreditLine)
	}

	return strings.Join(parts, ". ")
}
