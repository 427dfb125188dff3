package domain

import "sort"

// DefaultGrades is the allow-list of crude grades that are reported
var DefaultGrades = []string{
	"Skarv",
	"Goliat",
	"Statfjord",
	"Gullfaks Blend",
	"Alvheim",
	"Brent Blend",
	"Johan Sverdrup",
	"Gudrun",
	"Heidrun",
	"Forties",
	"Troll Blend",
	"Grane",
	"Oseberg Blend",
	"Gina Krog",
	"Flotta Gold",
	"Norne",
	"Draugen",
	"Clair",
	"Ekofisk Blend",
	"West Texas Intermediate (WTI)",
	"Mariner",
	"Danish Blend (DUC)",
	"Asgard Blend",
	"Harding",
	"Kraken",
}

// GradeSet is an exact-match set of grade labels
type GradeSet map[string]struct{}

// NewGradeSet builds a set from the given labels
func NewGradeSet(labels []string) GradeSet {
	set := make(GradeSet, len(labels))
	for _, label := range labels {
		set[label] = struct{}{}
	}
	return set
}

// Contains reports whether label is in the set (exact string match)
func (s GradeSet) Contains(label string) bool {
	_, ok := s[label]
	return ok
}

// Labels returns the labels in lexicographic order
func (s GradeSet) Labels() []string {
	labels := make([]string, 0, len(s))
	for label := range s {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// estimatedVolumes maps a vessel class to its nominal cargo size in barrels
var estimatedVolumes = map[string]int64{
	"suezmax":   1000000,
	"vlcc_plus": 2000000,
	"aframax":   600000,
}

// EstimatedVolume returns the nominal barrels carried by a vessel class.
// ok is false for classes without an estimate.
func EstimatedVolume(vesselClass string) (int64, bool) {
	v, ok := estimatedVolumes[vesselClass]
	return v, ok
}
