package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	base := func() *Exploration {
		e := NewExploration("exp-1", "Fractions", "Intro")
		e.Version = 1
		e.States["Middle"] = NewState("Middle")
		return e
	}

	tests := []struct {
		name     string
		old      *Exploration
		new      func() *Exploration
		wantDiff *ExplorationDiff // nil means we expect no diff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new:  base,
			wantDiff: &ExplorationDiff{
				ExplorationID: "exp-1",
				Added:         []string{"Intro", "Middle"},
			},
		},
		{
			name:     "No Changes",
			old:      base(),
			new:      base,
			wantDiff: nil,
		},
		{
			name: "Rename Shows As Add And Remove",
			old:  base(),
			new: func() *Exploration {
				e := base()
				e.States["Center"] = e.States["Middle"]
				delete(e.States, "Middle")
				return e
			},
			wantDiff: &ExplorationDiff{
				ExplorationID: "exp-1",
				Added:         []string{"Center"},
				Removed:       []string{"Middle"},
			},
		},
		{
			name: "Content Modified",
			old:  base(),
			new: func() *Exploration {
				e := base()
				e.States["Intro"].Content = []ContentBlock{{Type: ContentText, Value: "Hello"}}
				return e
			},
			wantDiff: &ExplorationDiff{
				ExplorationID: "exp-1",
				Modified:      []string{"Intro"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new())
			if tt.wantDiff == nil {
				if got != nil {
					t.Errorf("Diff() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Diff() = nil, want %+v", tt.wantDiff)
			}
			if got.ExplorationID != tt.wantDiff.ExplorationID {
				t.Errorf("Diff().ExplorationID = %v, want %v", got.ExplorationID, tt.wantDiff.ExplorationID)
			}
			if !reflect.DeepEqual(got.Added, tt.wantDiff.Added) {
				t.Errorf("Diff().Added = %v, want %v", got.Added, tt.wantDiff.Added)
			}
			if !reflect.DeepEqual(got.Removed, tt.wantDiff.Removed) {
				t.Errorf("Diff().Removed = %v, want %v", got.Removed, tt.wantDiff.Removed)
			}
			if !reflect.DeepEqual(got.Modified, tt.wantDiff.Modified) {
				t.Errorf("Diff().Modified = %v, want %v", got.Modified, tt.wantDiff.Modified)
			}
		})
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Unchanged Fields Omitted", func(t *testing.T) {
		e1 := NewExploration("exp-1", "A", "Intro")
		e2 := e1.Clone()
		e2.Title = "B"

		diff := Diff(e1, e2)
		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}
		bytes, _ := json.Marshal(diff)
		if strings.Contains(string(bytes), `"category"`) {
			t.Errorf("JSON should not contain 'category' when unchanged, got: %s", string(bytes))
		}
		if !strings.Contains(string(bytes), `"title":"B"`) {
			t.Errorf("JSON should contain new title, got: %s", string(bytes))
		}
	})
}

func TestClone_IsDeep(t *testing.T) {
	e := NewExploration("exp-1", "A", "Intro")
	e.States["Intro"].Widget.CustomizationArgs["choices"] = []any{"a", "b"}

	c := e.Clone()
	c.States["Intro"].Widget.Handlers[0].RuleSpecs[0].Dest = "Elsewhere"
	c.States["Intro"].Widget.CustomizationArgs["choices"].([]any)[0] = "z"

	if e.States["Intro"].Widget.Handlers[0].RuleSpecs[0].Dest != "Intro" {
		t.Error("Clone shares rule specs with the original")
	}
	if e.States["Intro"].Widget.CustomizationArgs["choices"].([]any)[0] != "a" {
		t.Error("Clone shares customization args with the original")
	}
}

func TestDecodeValue(t *testing.T) {
	t.Run("Typed Passthrough", func(t *testing.T) {
		in := []ContentBlock{{Type: ContentText, Value: "hi"}}
		out, err := DecodeValue[[]ContentBlock](in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(in, out) {
			t.Errorf("got %v, want %v", out, in)
		}
	})

	t.Run("From JSON", func(t *testing.T) {
		var raw any
		_ = json.Unmarshal([]byte(`[{"name":"x","generator_id":"Copier","customization_args":{"value":"5"}}]`), &raw)
		out, err := DecodeValue[[]ParamChange](raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out) != 1 || out[0].Name != "x" || out[0].GeneratorID != "Copier" {
			t.Errorf("unexpected decode result: %+v", out)
		}
	})
}
