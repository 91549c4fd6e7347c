package policy

import (
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

func sigs(scores ...int) []domain.Signal {
	out := make([]domain.Signal, 0, len(scores))
	for _, s := range scores {
		out = append(out, domain.Signal{Rule: "test", Score: s, Reason: "test signal"})
	}
	return out
}

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		signals []domain.Signal
		want    int
	}{
		{"no signals", nil, 0},
		{"empty slice", sigs(), 0},
		{"single signal", sigs(40), 40},
		{"single max signal", sigs(100), 100},
		{"two signals get 1.1x", sigs(40, 40), 44},
		{"three signals get 1.2x", sigs(30, 20, 35), 34},
		{"rounds half up", sigs(30, 35), 36},
		{"multiplier caps at 1.5", sigs(50, 50, 50, 50, 50, 50), 75},
		{"cap holds past six signals", sigs(50, 50, 50, 50, 50, 50, 50, 50), 75},
		{"clamps to 100", sigs(90, 90, 90, 90, 90, 90), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.signals); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestScoreRange pins the curve's output range: whatever the signal
// mix, the score stays in [0,100], and no signals means zero.
func TestScoreRange(t *testing.T) {
	if got := Score(nil); got != 0 {
		t.Fatalf("Score(nil) = %d, want 0", got)
	}

	for count := 1; count <= 12; count++ {
		for value := 0; value <= 100; value += 5 {
			scores := make([]int, count)
			for i := range scores {
				scores[i] = value
			}
			got := Score(sigs(scores...))
			if got < 0 || got > 100 {
				t.Fatalf("Score(%d signals of %d) = %d, out of [0,100]", count, value, got)
			}
		}
	}
}

// TestScoreMonotonic checks that adding a signal never lowers the
// score when the new signal is at least the current average.
func TestScoreMonotonic(t *testing.T) {
	base := []int{30, 45, 60}
	prev := Score(sigs(base...))
	for _, extra := range []int{60, 70, 85, 100} {
		base = append(base, extra)
		got := Score(sigs(base...))
		if got < prev {
			t.Fatalf("score dropped from %d to %d after adding signal %d", prev, got, extra)
		}
		prev = got
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score int
		want  domain.RiskLevel
	}{
		{0, domain.RiskLow},
		{10, domain.RiskLow},
		{24, domain.RiskLow},
		{25, domain.RiskMedium},
		{40, domain.RiskMedium},
		{49, domain.RiskMedium},
		{50, domain.RiskHigh},
		{74, domain.RiskHigh},
		{75, domain.RiskCritical},
		{90, domain.RiskCritical},
		{100, domain.RiskCritical},
	}

	for _, tt := range tests {
		if got := LevelFor(tt.score); got != tt.want {
			t.Errorf("LevelFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

// TestLevelPartition checks the bands cover every score exactly once
// and never regress as the score climbs.
func TestLevelPartition(t *testing.T) {
	rank := map[domain.RiskLevel]int{
		domain.RiskLow:      0,
		domain.RiskMedium:   1,
		domain.RiskHigh:     2,
		domain.RiskCritical: 3,
	}

	prev := -1
	for score := 0; score <= 100; score++ {
		level := LevelFor(score)
		r, ok := rank[level]
		if !ok {
			t.Fatalf("LevelFor(%d) = %q, not a known level", score, level)
		}
		if r < prev {
			t.Fatalf("level rank regressed at score %d: %q", score, level)
		}
		prev = r
	}
	if prev != rank[domain.RiskCritical] {
		t.Fatalf("score 100 did not reach critical")
	}
}

func TestActionFor(t *testing.T) {
	tests := []struct {
		name  string
		level domain.RiskLevel
		score int
		want  domain.Action
	}{
		{"critical blocks", domain.RiskCritical, 90, domain.ActionBlock},
		{"critical blocks at threshold", domain.RiskCritical, 75, domain.ActionBlock},
		{"high above 80 blocks", domain.RiskHigh, 81, domain.ActionBlock},
		{"high at 80 challenges", domain.RiskHigh, 80, domain.ActionChallenge},
		{"high at threshold challenges", domain.RiskHigh, 50, domain.ActionChallenge},
		{"medium challenges", domain.RiskMedium, 30, domain.ActionChallenge},
		{"low allows", domain.RiskLow, 10, domain.ActionAllow},
		{"zero allows", domain.RiskLow, 0, domain.ActionAllow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ActionFor(tt.level, tt.score); got != tt.want {
				t.Errorf("ActionFor(%s, %d) = %s, want %s", tt.level, tt.score, got, tt.want)
			}
		})
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		signals    []domain.Signal
		wantScore  int
		wantLevel  domain.RiskLevel
		wantAction domain.Action
	}{
		{"clean traffic", nil, 0, domain.RiskLow, domain.ActionAllow},
		{"single velocity hit", sigs(30), 30, domain.RiskMedium, domain.ActionChallenge},
		{"stacked strong signals", sigs(80, 80), 88, domain.RiskCritical, domain.ActionBlock},
		{"high risk challenges", sigs(60, 60), 66, domain.RiskHigh, domain.ActionChallenge},
		{"moderate pair", sigs(40, 25), 36, domain.RiskMedium, domain.ActionChallenge},
		{"blocklisted ip alone", sigs(80), 80, domain.RiskCritical, domain.ActionBlock},
		{"weak noise stays low", sigs(10, 10), 11, domain.RiskLow, domain.ActionAllow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, level, action := Decide(tt.signals)
			if score != tt.wantScore {
				t.Errorf("score = %d, want %d", score, tt.wantScore)
			}
			if level != tt.wantLevel {
				t.Errorf("level = %s, want %s", level, tt.wantLevel)
			}
			if action != tt.wantAction {
				t.Errorf("action = %s, want %s", action, tt.wantAction)
			}
		})
	}
}
