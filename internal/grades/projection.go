package grades

import "math"

// Projection estimates a student's final course total three ways.
type Projection struct {
	// Zeros assumes every remaining assignment scores zero.
	Zeros int `json:"zeros"`
	// Pace assumes the student keeps their current percentage.
	Pace int `json:"pace"`
	// Perfect assumes full marks on everything remaining.
	Perfect int `json:"perfect"`
}

// MaxPointsSoFar sums the max points of assignments the student has a valid
// score for.
func MaxPointsSoFar(student, maxRec ScoreRecord) float64 {
	var total float64
	for category, topics := range maxRec {
		for topic, m := range topics {
			if student[category][topic].Valid {
				total += m.Float()
			}
		}
	}
	return total
}

// Project computes the student's projected totals against the course max.
func Project(student, maxRec ScoreRecord) Projection {
	earned := Total(student)
	possible := Total(maxRec)
	soFar := MaxPointsSoFar(student, maxRec)

	p := Projection{
		Zeros:   int(math.Round(earned)),
		Perfect: int(math.Round(earned + possible - soFar)),
	}
	if soFar > 0 {
		p.Pace = int(math.Round(earned / soFar * possible))
	}
	return p
}
