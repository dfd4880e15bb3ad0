package chore

import (
	"strings"

	"github.com/dukerupert/fairshare/internal/apperr"
)

// Stock labels the recommendation list uses in place of a real tip.
var tipPlaceholders = map[string]bool{
	"자율 추가":     true,
	"추천 할일":     true,
	"식단 밸런스 팁":  true,
	"정리 루틴 팁":   true,
	"침구 관리 팁":   true,
	"살균 관리 팁":   true,
	"tip pending": true,
}

// NormalizeTip trims text and maps placeholder labels to "".
func NormalizeTip(text string) string {
	trimmed := strings.TrimSpace(text)
	if tipPlaceholders[trimmed] {
		return ""
	}
	return trimmed
}

// ValidateTip normalizes a tip that is being set explicitly. Clearing a tip
// goes through the memo, so an empty result is rejected.
func ValidateTip(text string) (string, error) {
	tip := NormalizeTip(text)
	if tip == "" {
		return "", apperr.Validation("tip must not be empty")
	}
	return tip, nil
}
