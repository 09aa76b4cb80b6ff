package service

type gradeBand struct {
	min   float64
	grade string
}

var gradeBands = []gradeBand{
	{90, "A+"},
	{80, "A"},
	{70, "B+"},
	{60, "B"},
	{50, "C+"},
	{40, "C"},
}

// LetterGrade converts a score into its letter band by percentage.
func LetterGrade(total, maximum float64) string {
	if maximum <= 0 {
		return ""
	}

	percentage := roundScore(total / maximum * 100)
	for _, band := range gradeBands {
		if percentage >= band.min {
			return band.grade
		}
	}
	return "F"
}
