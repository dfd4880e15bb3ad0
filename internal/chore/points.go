package chore

// BasePoints is the value of a task before duration and effort are added.
const BasePoints = 20

var durationWeights = map[string]int{
	"15": 5,
	"30": 10,
	"45": 15,
	"60": 20,
	"90": 25,
}

var effortWeights = map[string]int{
	"easy":    5,
	"normal":  10,
	"focus":   15,
	"hard":    20,
	"extreme": 30,
}

// EstimatePoints values a task from its expected duration in minutes
// ("15" through "90") and effort ("easy" through "extreme"). Unknown
// options weigh nothing.
func EstimatePoints(duration, effort string) int {
	return BasePoints + durationWeights[duration] + effortWeights[effort]
}

// ValidDuration reports whether d is a known duration option or empty.
func ValidDuration(d string) bool {
	_, ok := durationWeights[d]
	return ok || d == ""
}

// ValidEffort reports whether e is a known effort option or empty.
func ValidEffort(e string) bool {
	_, ok := effortWeights[e]
	return ok || e == ""
}
