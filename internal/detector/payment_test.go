package detector

import (
	"context"
	"strings"
	"testing"
)

func TestPaymentHeuristics(t *testing.T) {
	tests := []struct {
		name       string
		amount     float64
		wantScore  int
		wantReason string
	}{
		{"no amount", 0, 0, ""},
		{"ordinary amount", 47.95, 0, ""},
		{"large amount", 10550.50, largeAmountScore, "large transaction"},
		{"exactly at large threshold", 10000, roundAmountScore, "round"},
		{"round thousand", 5000, roundAmountScore, "round"},
		{"round but small", 100, 0, ""},
		{"minimum round", 1000, roundAmountScore, "round"},
		{"test amount 199", 199, testAmountScore, "common fraud testing amount"},
		{"test amount 1", 1, testAmountScore, "common fraud testing amount"},
		{"test amount 999", 999, testAmountScore, "common fraud testing amount"},
		{"large and round", 20000, largeAmountScore + roundAmountScore, ""},
	}

	d := NewPayment()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := testCheck()
			check.Amount = tt.amount

			sig, err := d.Detect(context.Background(), check)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.wantScore == 0 {
				if sig != nil {
					t.Fatalf("fired unexpectedly: %+v", sig)
				}
				return
			}
			if sig == nil {
				t.Fatalf("amount %.2f did not fire", tt.amount)
			}
			if sig.Score != tt.wantScore {
				t.Errorf("score = %d, want %d", sig.Score, tt.wantScore)
			}
			if tt.wantReason != "" && !strings.Contains(sig.Reason, tt.wantReason) {
				t.Errorf("reason = %q, want %q mentioned", sig.Reason, tt.wantReason)
			}
		})
	}
}
