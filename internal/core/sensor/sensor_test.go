package sensor

import "testing"

func TestEncode_Total(t *testing.T) {
	for _, g := range Generations() {
		seen := map[Status]bool{}
		for _, code := range Vocabulary(g) {
			s := Encode(g, code)
			if s < Missing || s > Unknown {
				t.Fatalf("%s code %d mapped outside vocabulary: %v", g, code, s)
			}
			seen[s] = true
		}
		if !seen[Missing] {
			t.Fatalf("%s: no code maps to Missing", g)
		}
		for _, code := range []int{-1, 5, 9, 255} {
			if got := Encode(g, code); got != Unknown {
				t.Fatalf("%s code %d -> %v want unknown", g, code, got)
			}
		}
	}
}

func TestEncode_Tables(t *testing.T) {
	tests := []struct {
		gen  Generation
		raw  int
		want Status
	}{
		{Gen2003, RawNoReading, Missing},
		{Gen2003, RawWorn, WakeWear},
		{Gen2003, RawNotWorn, NonWear},
		{Gen2011, 0, Missing},
		{Gen2011, 1, WakeWear},
		{Gen2011, 2, SleepWear},
		{Gen2011, 3, NonWear},
		{Gen2011, 4, Unknown},
	}
	for _, tc := range tests {
		if got := Encode(tc.gen, tc.raw); got != tc.want {
			t.Fatalf("Encode(%s,%d)=%v want %v", tc.gen, tc.raw, got, tc.want)
		}
	}
	if got := Encode(Generation(99), 1); got != Unknown {
		t.Fatalf("unknown generation should encode to unknown, got %v", got)
	}
}

func TestVocabularyOrdered(t *testing.T) {
	got := Vocabulary(Gen2011)
	for i, c := range got {
		if c != i {
			t.Fatalf("Vocabulary(gen2011)=%v", got)
		}
	}
	if len(Vocabulary(Generation(42))) != 0 {
		t.Fatalf("unknown generation has no vocabulary")
	}
}

func TestSpecShapes(t *testing.T) {
	for _, g := range Generations() {
		s := g.Spec()
		if !g.Valid() || s.EpochsPerDay != 1440 || s.CanonicalDays != 7 || len(s.Channels) != 2 {
			t.Fatalf("%s spec = %+v", g, s)
		}
	}
	if Generation(0).Valid() {
		t.Fatalf("zero generation must be invalid")
	}
	c := Gen2003.Spec().Channels[1]
	if c.Clip(300) != 255 || c.Clip(-4) != 0 || c.Clip(10) != 10 {
		t.Fatalf("steps clip broken")
	}
	tri := Gen2011.Spec().Channels[0]
	if tri.Clip(0) != 1e-3 || tri.Clip(50) != 50 {
		t.Fatalf("triax floor broken")
	}
}

func TestParseGeneration(t *testing.T) {
	for in, want := range map[string]Generation{"PAXRAW": Gen2003, "gen2011": Gen2011, " 2003 ": Gen2003} {
		got, err := ParseGeneration(in)
		if err != nil || got != want {
			t.Fatalf("ParseGeneration(%q)=%v,%v", in, got, err)
		}
	}
	if _, err := ParseGeneration("gen1999"); err == nil {
		t.Fatalf("expected error")
	}
}
