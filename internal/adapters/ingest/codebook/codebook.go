// Package codebook reads the scraped variable codebook and answers label questions about codes
package codebook

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Entry describes one variable
type Entry struct {
	Code     string            `json:"code"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

// Codebook is an immutable code to Entry map
type Codebook struct {
	entries map[string]Entry
}

// New builds a codebook from entries
func New(entries ...Entry) *Codebook {
	c := &Codebook{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		e.Code = strings.ToUpper(e.Code)
		c.entries[e.Code] = e
	}
	return c
}

// Merge returns a codebook holding c plus others, later entries winning
func (c *Codebook) Merge(others ...*Codebook) *Codebook {
	out := New()
	for _, src := range append([]*Codebook{c}, others...) {
		for k, e := range src.entries {
			out.entries[k] = e
		}
	}
	return out
}

// Len returns the number of entries
func (c *Codebook) Len() int { return len(c.entries) }

// Lookup returns the entry for code
func (c *Codebook) Lookup(code string) (Entry, bool) {
	e, ok := c.entries[strings.ToUpper(code)]
	return e, ok
}

// Category returns the file category of code, empty when unknown
func (c *Codebook) Category(code string) string {
	return c.entries[strings.ToUpper(code)].Category
}

// Categories returns the categories needed to read codes
func (c *Codebook) Categories(codes []string) map[string]bool {
	out := map[string]bool{}
	for _, code := range codes {
		if cat := c.Category(code); cat != "" {
			out[cat] = true
		}
	}
	return out
}

// Label returns the label of value v of code
func (c *Codebook) Label(code string, v float64) (string, bool) {
	e, ok := c.Lookup(code)
	if !ok {
		return "", false
	}
	l, ok := e.Labels[strconv.FormatFloat(v, 'f', -1, 64)]
	return l, ok
}

// MissingCodes returns the numeric answers of code that stand for refusal or "don't know"
// only codes above 5 are considered so that real small-scale answers survive
func (c *Codebook) MissingCodes(code string) []float64 {
	e, ok := c.Lookup(code)
	if !ok {
		return nil
	}
	var out []float64
	for k, label := range e.Labels {
		n, err := strconv.Atoi(k)
		if err != nil || !isDigits(k) || n <= 5 {
			continue
		}
		if dropped(label) {
			out = append(out, float64(n))
		}
	}
	slices.Sort(out)
	return out
}

// dropped folds label per call; a Caser must not be shared across goroutines
func dropped(label string) bool {
	return slices.Contains(dropList, cases.Fold().String(strings.TrimSpace(label)))
}

// dropList holds folded labels of answers that carry no information
var dropList = []string{
	"refuse",
	"refused",
	"sp refused",
	"no response",
	"blank",
	"error",
	"unknown",
	"don't know",
	"dont know",
	"don't  know",
	"don't know/not sure",
	"no / don't know",
	"not determined, picture missing",
	"cannot assess",
	"could not assess",
	"cannot be accessed",
	"can not be assessed",
	"can not assess",
	"cannot be assessed",
	"could not obtain",
	"could not interpret",
	"could not determine",
	"calculation cannot be determined",
	"data acquisition problems",
	"text present but uncodable",
	"blank but applicable",
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// header column names in the scraped CSV
const (
	colCode     = "code"
	colName     = "name"
	colCategory = "category"
	colCodebook = "codebook"
)

// Parse reads the ';' separated codebook export
// the Codebook column holds a JSON object of value to label
func Parse(r io.Reader) (*Codebook, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("codebook: header: %w", err)
	}
	fold := cases.Fold()
	pos := map[string]int{}
	for i, h := range head {
		h = fold.String(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	for _, need := range []string{colCode, colCodebook} {
		if _, ok := pos[need]; !ok {
			return nil, fmt.Errorf("codebook: header lacks %q column", need)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := pos[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var entries []Entry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("codebook: line %d: %w", line, err)
		}
		e := Entry{
			Code:     field(rec, colCode),
			Name:     field(rec, colName),
			Category: strings.ToUpper(field(rec, colCategory)),
		}
		if e.Code == "" {
			continue
		}
		if raw := field(rec, colCodebook); raw != "" {
			if err := json.Unmarshal([]byte(raw), &e.Labels); err != nil {
				return nil, fmt.Errorf("codebook: line %d: %s labels: %w", line, e.Code, err)
			}
		}
		entries = append(entries, e)
	}
	return New(entries...), nil
}

// Load reads the codebook at path
func Load(path string) (*Codebook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("codebook: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}
