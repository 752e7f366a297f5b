package variables

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nhanes/internal/core/resolve"

	"github.com/google/go-cmp/cmp"
)

func TestParse_KeepsOrder(t *testing.T) {
	doc := `
# demographics
zeta: [RIDAGEYR]
income: [indfminc, INDFMIN2]
gender: RIAGENDR
lab: [L13_2]
`
	got, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	want := []resolve.Variable{
		{Name: "zeta", Codes: []string{"RIDAGEYR"}},
		{Name: "income", Codes: []string{"INDFMINC", "INDFMIN2"}},
		{Name: "gender", Codes: []string{"RIAGENDR"}},
		{Name: "lab", Codes: []string{"L13_2"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("variables (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"RIDAGEYR", "INDFMINC", "INDFMIN2", "RIAGENDR", "L13_2"}, Codes(got)); diff != "" {
		t.Fatalf("codes (-want +got):\n%s", diff)
	}
}

func TestParse_JSON(t *testing.T) {
	got, err := Parse(strings.NewReader(`{"age": ["RIDAGEYR"], "bmi": ["BMXBMI"]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].Name != "bmi" {
		t.Fatalf("got %+v", got)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":      "   \n",
		"list":       "- RIDAGEYR\n",
		"empty list": "age: []\n",
		"bad code":   "age: [RID AGE]\n",
		"nested":     "age: {a: b}\n",
		"duplicate":  "age: [A]\nage: [B]\n",
		"syntax":     "age: [A\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(doc)); err == nil {
				t.Fatalf("expected error for %q", doc)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "vars.yaml")
	if err := os.WriteFile(p, []byte("age: RIDAGEYR\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(p)
	if err != nil || len(got) != 1 {
		t.Fatalf("Load: %v %v", got, err)
	}
	if _, err := Load(p + ".missing"); err == nil {
		t.Fatalf("expected open error")
	}
}
