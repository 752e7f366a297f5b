// Package nhanesfiles discovers survey transport files and mortality linkage files on disk
//
// Naming conventions:
// - DEMO.XPT is the first cycle (1999), DEMO_B.XPT the second (2001), up to _O
// - PAXRAW_* files carry the minute-level gen2003 sensor stream, PAXMIN_* the gen2011 one
// - NHANES_2003_2004_MORT_2019_PUBLIC.dat is the mortality linkage of the 2003 cycle
package nhanesfiles

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"nhanes/internal/core/sensor"
)

// FirstCycle is the survey start year of files without a cycle suffix
const FirstCycle = 1999

// MortalityCategory groups every linked mortality file
const MortalityCategory = "MORT"

// Kind classifies a discovered file
type Kind uint8

const (
	// Response files hold survey questionnaire and exam answers
	Response Kind = iota + 1
	// Mortality files hold fixed-width death linkage records
	Mortality
	// Sensor files hold minute-level accelerometer epochs
	Sensor
)

func (k Kind) String() string {
	switch k {
	case Response:
		return "response"
	case Mortality:
		return "mortality"
	case Sensor:
		return "sensor"
	default:
		return "unknown"
	}
}

// File is one cataloged input
type File struct {
	Path     string            `json:"path"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Cycle    int               `json:"cycle"`
	Kind     Kind              `json:"kind"`
	Gen      sensor.Generation `json:"generation,omitempty"`
}

var mortRe = regexp.MustCompile(`(?i)^NHANES_(\d{4})_(\d{4})_MORT_\d{4}_PUBLIC\.dat$`)

// sensorCategories maps sensor file categories to their generation
var sensorCategories = map[string]sensor.Generation{
	"PAXRAW": sensor.Gen2003,
	"PAXMIN": sensor.Gen2011,
}

// CycleOf returns the category and survey start year encoded in a file stem
func CycleOf(stem string) (string, int) {
	stem = strings.ToUpper(stem)
	n := len(stem)
	if n > 2 && stem[n-2] == '_' && stem[n-1] >= 'A' && stem[n-1] <= 'O' {
		return stem[:n-2], FirstCycle + 2*int(stem[n-1]-'A')
	}
	return stem, FirstCycle
}

// Classify inspects a base file name and reports whether it is a known input
func Classify(name string) (File, bool) {
	if m := mortRe.FindStringSubmatch(name); m != nil {
		y, _ := strconv.Atoi(m[1])
		return File{Name: name, Category: MortalityCategory, Cycle: y, Kind: Mortality}, true
	}
	ext := filepath.Ext(name)
	if !strings.EqualFold(ext, ".xpt") {
		return File{}, false
	}
	cat, cycle := CycleOf(strings.TrimSuffix(name, ext))
	f := File{Name: name, Category: cat, Cycle: cycle, Kind: Response}
	if gen, ok := sensorCategories[cat]; ok {
		f.Kind = Sensor
		f.Gen = gen
	}
	return f, true
}

// Catalog lists every known input directly under dir
// files are ordered by kind, category, cycle, then name
func Catalog(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("nhanesfiles: read %s: %w", dir, err)
	}
	var out []File
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		f, ok := Classify(e.Name())
		if !ok {
			continue
		}
		f.Path = filepath.Join(dir, e.Name())
		out = append(out, f)
	}
	slices.SortFunc(out, compare)
	return out, nil
}

func compare(a, b File) int {
	if a.Kind != b.Kind {
		return int(a.Kind) - int(b.Kind)
	}
	if c := strings.Compare(a.Category, b.Category); c != 0 {
		return c
	}
	if a.Cycle != b.Cycle {
		return a.Cycle - b.Cycle
	}
	return strings.Compare(a.Name, b.Name)
}

// Needed keeps response files whose category is in need
// mortality and sensor files are always kept; a nil need keeps everything
func Needed(files []File, need map[string]bool) []File {
	if need == nil {
		return files
	}
	out := make([]File, 0, len(files))
	for _, f := range files {
		if f.Kind != Response || need[f.Category] {
			out = append(out, f)
		}
	}
	return out
}

// MissingCategories lists categories in need that no response file provides
func MissingCategories(files []File, need map[string]bool) []string {
	have := map[string]bool{}
	for _, f := range files {
		have[f.Category] = true
	}
	var out []string
	for c := range need {
		if c != "" && c != MortalityCategory && !have[c] {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}

// Cycles returns the distinct cycles of kind in ascending order
func Cycles(files []File, kind Kind) []int {
	var out []int
	for _, f := range files {
		if f.Kind == kind && !slices.Contains(out, f.Cycle) {
			out = append(out, f.Cycle)
		}
	}
	slices.Sort(out)
	return out
}
