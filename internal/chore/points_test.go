package chore

import "testing"

func TestEstimatePoints(t *testing.T) {
	tests := []struct {
		duration, effort string
		want             int
	}{
		{"", "", 20},
		{"15", "easy", 30},
		{"30", "normal", 40},
		{"60", "hard", 60},
		{"90", "extreme", 75},
		{"120", "impossible", 20},
	}
	for _, tt := range tests {
		if got := EstimatePoints(tt.duration, tt.effort); got != tt.want {
			t.Errorf("EstimatePoints(%q, %q) = %d, want %d", tt.duration, tt.effort, got, tt.want)
		}
	}
}

func TestNormalizeTip(t *testing.T) {
	tests := map[string]string{
		"":                   "",
		"   ":                "",
		"추천 할일":              "",
		"  침구 관리 팁 ":          "",
		"  rinse with vinegar": "rinse with vinegar",
	}
	for in, want := range tests {
		if got := NormalizeTip(in); got != want {
			t.Errorf("NormalizeTip(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateTipRejectsPlaceholder(t *testing.T) {
	if _, err := ValidateTip("자율 추가"); err == nil {
		t.Error("expected error for placeholder tip")
	}
	tip, err := ValidateTip(" open the window ")
	if err != nil {
		t.Fatalf("ValidateTip: %v", err)
	}
	if tip != "open the window" {
		t.Errorf("tip = %q", tip)
	}
}
