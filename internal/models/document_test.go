package models

import (
	"testing"
)

func TestParseLength(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    LengthCategory
		wantErr bool
	}{
		{"empty defaults to medium", "", LengthMedium, false},
		{"short", "short", LengthShort, false},
		{"case insensitive", " LONG ", LengthLong, false},
		{"unknown", "huge", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLength(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLength(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLength(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeReliable, false},
		{"reliable", ModeReliable, false},
		{"Creative", ModeCreative, false},
		{"wild", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLengthTable(t *testing.T) {
	want := map[LengthCategory][2]int{
		LengthShort:  {15, 30},
		LengthMedium: {50, 100},
		LengthLong:   {100, 180},
	}
	for c, r := range want {
		s := c.Spec()
		if s.MinWords != r[0] || s.MaxWords != r[1] || s.Category != c {
			t.Errorf("%s: got %+v, want %v", c, s, r)
		}
	}
	if LengthCategory("bogus").Spec().Category != LengthMedium {
		t.Error("unknown category should fall back to medium")
	}
}

func TestChunkBudget(t *testing.T) {
	medium := LengthMedium.Spec()
	tests := []struct {
		name   string
		target LengthSpec
		n       int
		floor   int
		ceiling int
		want    LengthSpec
	}{
		{"single chunk keeps target", medium, 1, 15, 1024, medium},
		{"two chunks halve medium", medium, 2, 15, 1024, LengthSpec{Category: LengthMedium, MinWords: 25, MaxWords: 50}},
		{"five chunks floor the minimum", medium, 5, 15, 1024, LengthSpec{Category: LengthShort, MinWords: 15, MaxWords: 20}},
		{"many chunks floor both", medium, 50, 15, 1024, LengthSpec{Category: LengthShort, MinWords: 15, MaxWords: 15}},
		{"floor never exceeds target", LengthShort.Spec(), 4, 40, 0, LengthSpec{Category: LengthShort, MinWords: 30, MaxWords: 30}},
		{"half the ceiling caps the share", medium, 2, 15, 40, LengthSpec{Category: CategoryForWords(20), MinWords: 20, MaxWords: 20}},
		{"floor yields to the ceiling", medium, 8, 15, 20, LengthSpec{Category: CategoryForWords(10), MinWords: 10, MaxWords: 10}},
		{"tiny ceiling keeps one word", medium, 3, 15, 1, LengthSpec{Category: CategoryForWords(1), MinWords: 1, MaxWords: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChunkBudget(tt.target, tt.n, tt.floor, tt.ceiling)
			if got != tt.want {
				t.Errorf("ChunkBudget() = %+v, want %+v", got, tt.want)
			}
			if got.MinWords > got.MaxWords {
				t.Errorf("min %d > max %d", got.MinWords, got.MaxWords)
			}
			if tt.ceiling > 1 && tt.n > 1 && got.MaxWords > tt.ceiling/2 {
				t.Errorf("max %d over half the ceiling %d", got.MaxWords, tt.ceiling)
			}
		})
	}
}

func TestNewDocument(t *testing.T) {
	doc, err := NewDocument("d1", "text", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Length != LengthMedium || doc.Mode != ModeReliable {
		t.Errorf("defaults not applied: %+v", doc)
	}
	if _, err := NewDocument("d2", "text", "tiny", ""); err == nil {
		t.Error("expected error for invalid length")
	}
	if _, err := NewDocument("d3", "text", "short", "chaotic"); err == nil {
		t.Error("expected error for invalid mode")
	}
}

func TestPresetFor(t *testing.T) {
	if p := PresetFor(ModeReliable, StageCombine); p.DoSample {
		t.Errorf("reliable should not sample: %+v", p)
	}
	direct := PresetFor(ModeCreative, StageDirect)
	if !direct.DoSample || direct.TopK != 50 || direct.TopP != 0.9 {
		t.Errorf("creative direct preset: %+v", direct)
	}
	combine := PresetFor(ModeCreative, StageCombine)
	if combine.TopK != 100 || combine.TopP != 0.95 {
		t.Errorf("creative combine preset: %+v", combine)
	}
	for _, mode := range []Mode{ModeReliable, ModeCreative} {
		if p := PresetFor(mode, StageChunk); p.DoSample || p != PresetFor(ModeReliable, StageDirect) {
			t.Errorf("%s chunk preset should be deterministic: %+v", mode, p)
		}
	}
}

func TestHistoryQuery_Validate(t *testing.T) {
	tests := []struct {
		name      string
		query     *HistoryQuery
		wantErr   bool
		wantLimit int
	}{
		{"empty query", &HistoryQuery{Query: "  "}, true, 0},
		{"sets default limit", &HistoryQuery{Query: "x"}, false, 10},
		{"caps limit", &HistoryQuery{Query: "x", Limit: 500}, false, 100},
		{"keeps limit", &HistoryQuery{Query: "x", Limit: 7}, false, 7},
		{"negative offset", &HistoryQuery{Query: "x", Offset: -3}, false, 10},
		{"min score out of range", &HistoryQuery{Query: "x", MinScore: 1.5}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate(10, 100)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.query.Limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", tt.query.Limit, tt.wantLimit)
			}
			if tt.query.Offset < 0 {
				t.Errorf("offset not clamped: %d", tt.query.Offset)
			}
		})
	}
}
