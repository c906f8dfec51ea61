package cues

import (
	"testing"

	"github.com/forPelevin/brollcut/internal/types"
)

func TestScore_Table(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantVisual   bool
		wantEmphasis bool
	}{
		{"empty", "", false, false},
		{"process", "First open the app, then tap the dashboard.", true, false},
		{"object", "We walked through the market in the old city.", true, false},
		{"opinion", "Honestly, I think this changed my life!", false, true},
		{"numbers", "It took 3 weeks and 40 dollars.", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			visual, emphasis := Score(tt.text)
			if tt.wantVisual && visual <= 0 {
				t.Fatalf("expected visual>0, got %v", visual)
			}
			if !tt.wantVisual && visual != 0 {
				t.Fatalf("expected visual==0, got %v", visual)
			}
			if tt.wantEmphasis && emphasis <= 0 {
				t.Fatalf("expected emphasis>0, got %v", emphasis)
			}
			if !tt.wantEmphasis && emphasis != 0 {
				t.Fatalf("expected emphasis==0, got %v", emphasis)
			}
		})
	}
}

func TestAnnotate_KeepsTiming(t *testing.T) {
	hints := Annotate([]types.Segment{
		{Start: 0, End: 2.5, Text: "open the app"},
		{Start: 2.5, End: 4, Text: "I love it!"},
	})
	if len(hints) != 2 {
		t.Fatalf("expected 2 hints, got %d", len(hints))
	}
	if hints[1].StartSec != 2.5 || hints[1].EndSec != 4 {
		t.Fatalf("unexpected timing: %+v", hints[1])
	}
	if hints[0].Visual <= hints[1].Visual {
		t.Fatalf("expected first segment to be more visual: %+v", hints)
	}
}
