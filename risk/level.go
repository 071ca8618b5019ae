package risk

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnknownClass is returned when a classifier produces a class outside the
// label table.
var ErrUnknownClass = errors.New("classifier returned unknown class")

// Level is the categorical driver risk label.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
)

var levelNames = [...]string{
	LevelLow:    "LOW",
	LevelMedium: "MEDIUM",
	LevelHigh:   "HIGH",
}

// Levels returns every label in class order.
func Levels() []Level {
	return []Level{LevelLow, LevelMedium, LevelHigh}
}

func (l Level) Valid() bool {
	return l >= LevelLow && l <= LevelHigh
}

func (l Level) String() string {
	if !l.Valid() {
		return "Level(" + strconv.Itoa(int(l)) + ")"
	}
	return levelNames[l]
}

// Class is the integer the classifier uses for this label.
func (l Level) Class() int {
	return int(l)
}

// LevelFromClass maps classifier output to a label.
func LevelFromClass(class int) (Level, error) {
	level := Level(class)
	if !level.Valid() {
		return 0, fmt.Errorf("%w %d", ErrUnknownClass, class)
	}
	return level, nil
}

// ParseLevel accepts a label name in any case ("low", "High") or its class
// number ("0".."2").
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	if class, err := strconv.Atoi(s); err == nil {
		return LevelFromClass(class)
	}
	name := cases.Upper(language.Und).String(s)
	for i, candidate := range levelNames {
		if candidate == name {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown risk level %q", s)
}
