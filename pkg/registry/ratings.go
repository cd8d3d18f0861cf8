package registry

import (
	"math"

	skilltypes "github.com/jingkaihe/skillli/pkg/types/skills"
)

// GetRatings returns the aggregate rating of name
func GetRatings(index *skilltypes.LocalIndex, name string) (skilltypes.RatingInfo, error) {
	entry, err := GetEntry(index, name)
	if err != nil {
		return skilltypes.RatingInfo{}, err
	}
	return entry.Rating, nil
}

// SubmitRating folds one rating into the entry's aggregate in place. The
// average is kept rounded to one decimal.
func SubmitRating(index *skilltypes.LocalIndex, sub skilltypes.RatingSubmission) (skilltypes.RatingInfo, error) {
	if sub.Rating < 1 || sub.Rating > 5 {
		return skilltypes.RatingInfo{}, skilltypes.NewValidationErrorf("invalid rating", "rating: must be between 1 and 5")
	}
	entry, err := GetEntry(index, sub.SkillName)
	if err != nil {
		return skilltypes.RatingInfo{}, err
	}

	current := entry.Rating
	count := current.Count + 1
	average := (current.Average*float64(current.Count) + float64(sub.Rating)) / float64(count)

	current.Average = math.Round(average*10) / 10
	current.Count = count
	current.Distribution[sub.Rating-1]++

	entry.Rating = current
	index.Skills[sub.SkillName] = *entry
	return current, nil
}
