package domain

import "strings"

// Difficulty is an ordinal learner-proficiency tier.
type Difficulty string

const (
	DifficultyInitial           Difficulty = "Initial"
	DifficultyIntermediate      Difficulty = "Intermediate"
	DifficultyUpperIntermediate Difficulty = "Upper-Intermediate"
	DifficultyAdvanced          Difficulty = "Advanced"
	DifficultyUnknown           Difficulty = "Unknown"
)

// Difficulties lists the known tiers in ascending order.
var Difficulties = []Difficulty{
	DifficultyInitial,
	DifficultyIntermediate,
	DifficultyUpperIntermediate,
	DifficultyAdvanced,
}

// gradeTable maps source grade labels to tiers.
var gradeTable = map[string]Difficulty{
	"高考":  DifficultyInitial,
	"初阶":  DifficultyInitial,
	"四级":  DifficultyIntermediate,
	"中阶":  DifficultyIntermediate,
	"六级":  DifficultyUpperIntermediate,
	"考研":  DifficultyUpperIntermediate,
	"中高阶": DifficultyUpperIntermediate,
	"雅思":  DifficultyAdvanced,
	"托福":  DifficultyAdvanced,
	"专四":  DifficultyAdvanced,
	"高阶":  DifficultyAdvanced,
}

// ClassifyDifficulty returns the tier of the first hint found in the grade
// table. Hints are checked in the order given, primary first.
func ClassifyDifficulty(hints ...string) Difficulty {
	for _, hint := range hints {
		if tier, ok := gradeTable[strings.TrimSpace(hint)]; ok {
			return tier
		}
	}
	return DifficultyUnknown
}

// ParseDifficulty maps a tier label (as produced by the language model or
// stored in the database) back to a tier.
func ParseDifficulty(label string) Difficulty {
	label = strings.TrimSpace(label)
	for _, tier := range Difficulties {
		if strings.EqualFold(label, string(tier)) {
			return tier
		}
	}
	return DifficultyUnknown
}
