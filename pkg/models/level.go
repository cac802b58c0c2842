package models

import (
	"fmt"
	"strings"
)

// Level is a CEFR proficiency level
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

// Levels is the fixed ascending proficiency sequence
var Levels = []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}

// LevelNames holds the human-readable name for each level
var LevelNames = map[Level]string{
	LevelA1: "Beginner",
	LevelA2: "Elementary",
	LevelB1: "Intermediate",
	LevelB2: "Upper Intermediate",
	LevelC1: "Advanced",
	LevelC2: "Mastery",
}

// Rank returns the position of the level in Levels, or -1 if unknown
func (l Level) Rank() int {
	for i, lvl := range Levels {
		if lvl == l {
			return i
		}
	}
	return -1
}

// Valid reports whether l is one of the known levels
func (l Level) Valid() bool {
	return l.Rank() >= 0
}

// ParseLevel parses a level name case-insensitively
func ParseLevel(s string) (Level, error) {
	lvl := Level(strings.ToUpper(strings.TrimSpace(s)))
	if !lvl.Valid() {
		return "", fmt.Errorf("unknown level %q", s)
	}
	return lvl, nil
}
