package grading

// Letter is a letter grade on the standard plus/minus scale.
type Letter string

const (
	LetterA      Letter = "A"
	LetterAMinus Letter = "A-"
	LetterBPlus  Letter = "B+"
	LetterB      Letter = "B"
	LetterBMinus Letter = "B-"
	LetterCPlus  Letter = "C+"
	LetterC      Letter = "C"
	LetterCMinus Letter = "C-"
	LetterDPlus  Letter = "D+"
	LetterD      Letter = "D"
	LetterDMinus Letter = "D-"
	LetterF      Letter = "F"
)

type letterThreshold struct {
	min    float64
	letter Letter
}

// gradeScale is ordered highest threshold first.
var gradeScale = []letterThreshold{
	{93, LetterA},
	{90, LetterAMinus},
	{87, LetterBPlus},
	{83, LetterB},
	{80, LetterBMinus},
	{77, LetterCPlus},
	{73, LetterC},
	{70, LetterCMinus},
	{67, LetterDPlus},
	{63, LetterD},
	{60, LetterDMinus},
}

var gpaPoints = map[Letter]float64{
	LetterA:      4.0,
	LetterAMinus: 3.7,
	LetterBPlus:  3.3,
	LetterB:      3.0,
	LetterBMinus: 2.7,
	LetterCPlus:  2.3,
	LetterC:      2.0,
	LetterCMinus: 1.7,
	LetterDPlus:  1.3,
	LetterD:      1.0,
	LetterDMinus: 0.7,
	LetterF:      0.0,
}

// PercentageToLetter maps a percentage onto the letter scale. Each band is
// half-open, so a percentage sitting exactly on a threshold gets the higher
// letter. Values above 100 are an A and anything under 60 is an F.
func PercentageToLetter(percentage float64) Letter {
	for _, t := range gradeScale {
		if percentage >= t.min {
			return t.letter
		}
	}
	return LetterF
}

// GPAPoints returns the 4.0-scale value of a letter.
func GPAPoints(letter Letter) (float64, bool) {
	points, ok := gpaPoints[letter]
	return points, ok
}

// EstimateGPA averages the GPA points of the known letters. It reports false
// when none of the letters are on the scale.
func EstimateGPA(letters []Letter) (float64, bool) {
	var sum float64
	var n int
	for _, l := range letters {
		if p, ok := gpaPoints[l]; ok {
			sum += p
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return Round2(sum / float64(n)), true
}
