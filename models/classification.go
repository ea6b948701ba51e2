package models

import "fmt"

type SchoolType string

const (
	SchoolPodstawowa SchoolType = "podstawowa"
	SchoolLiceum     SchoolType = "liceum"
	SchoolTechnikum  SchoolType = "technikum"
)

type Subject string

const (
	SubjectChemia Subject = "chemia"
	SubjectFizyka Subject = "fizyka"
)

type Level string

const (
	LevelPodstawowy  Level = "podstawowy"
	LevelRozszerzony Level = "rozszerzony"
)

func ParseSchoolType(s string) (SchoolType, error) {
	switch st := SchoolType(s); st {
	case SchoolPodstawowa, SchoolLiceum, SchoolTechnikum:
		return st, nil
	}
	return "", fmt.Errorf("unknown school type %q", s)
}

func ParseSubject(s string) (Subject, error) {
	switch sub := Subject(s); sub {
	case SubjectChemia, SubjectFizyka:
		return sub, nil
	}
	return "", fmt.Errorf("unknown subject %q", s)
}

func ParseLevel(s string) (Level, error) {
	switch l := Level(s); l {
	case LevelPodstawowy, LevelRozszerzony:
		return l, nil
	}
	return "", fmt.Errorf("unknown level %q", s)
}

// ClassNumbers lists the class numbers offered for a school type.
func ClassNumbers(st SchoolType) []int {
	switch st {
	case SchoolPodstawowa:
		return []int{7, 8}
	case SchoolLiceum:
		return []int{1, 2, 3, 4}
	case SchoolTechnikum:
		return []int{1, 2, 3, 4, 5}
	}
	return nil
}

func IsValidClass(st SchoolType, class int) bool {
	for _, n := range ClassNumbers(st) {
		if n == class {
			return true
		}
	}
	return false
}

// Classification describes what kind of lesson is booked. Exactly one of
// Podstawowa, Liceum or Technikum; each carries only the fields its school
// type needs.
type Classification interface {
	SchoolType() SchoolType
	ClassNumber() int
	Validate() error
	isClassification()
}

type Podstawowa struct {
	Subject Subject
	Class   int
}

func (Podstawowa) SchoolType() SchoolType { return SchoolPodstawowa }
func (p Podstawowa) ClassNumber() int     { return p.Class }
func (Podstawowa) isClassification()      {}

func (p Podstawowa) Validate() error {
	if _, err := ParseSubject(string(p.Subject)); err != nil {
		return err
	}
	if !IsValidClass(SchoolPodstawowa, p.Class) {
		return fmt.Errorf("class %d is not offered for %s", p.Class, SchoolPodstawowa)
	}
	return nil
}

type Liceum struct {
	Level Level
	Class int
}

func (Liceum) SchoolType() SchoolType { return SchoolLiceum }
func (l Liceum) ClassNumber() int     { return l.Class }
func (Liceum) isClassification()      {}

func (l Liceum) Validate() error {
	if _, err := ParseLevel(string(l.Level)); err != nil {
		return err
	}
	if !IsValidClass(SchoolLiceum, l.Class) {
		return fmt.Errorf("class %d is not offered for %s", l.Class, SchoolLiceum)
	}
	return nil
}

type Technikum struct {
	Class int
}

func (Technikum) SchoolType() SchoolType { return SchoolTechnikum }
func (t Technikum) ClassNumber() int     { return t.Class }
func (Technikum) isClassification()      {}

func (t Technikum) Validate() error {
	if !IsValidClass(SchoolTechnikum, t.Class) {
		return fmt.Errorf("class %d is not offered for %s", t.Class, SchoolTechnikum)
	}
	return nil
}

// NewClassification builds and validates a classification from flat request
// fields. subject and level are ignored where the school type has no use
// for them.
func NewClassification(schoolType, subject, level string, class int) (Classification, error) {
	st, err := ParseSchoolType(schoolType)
	if err != nil {
		return nil, err
	}

	var c Classification
	switch st {
	case SchoolPodstawowa:
		if subject == "" {
			return nil, fmt.Errorf("subject is required for %s", st)
		}
		c = Podstawowa{Subject: Subject(subject), Class: class}
	case SchoolLiceum:
		if level == "" {
			return nil, fmt.Errorf("level is required for %s", st)
		}
		c = Liceum{Level: Level(level), Class: class}
	case SchoolTechnikum:
		c = Technikum{Class: class}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Describe renders a classification for emails and exports, e.g.
// "liceum, klasa 2, rozszerzony".
func Describe(c Classification) string {
	base := fmt.Sprintf("%s, klasa %d", c.SchoolType(), c.ClassNumber())
	switch v := c.(type) {
	case Podstawowa:
		return base + ", " + string(v.Subject)
	case Liceum:
		return base + ", " + string(v.Level)
	}
	return base
}
