package progress

import (
	"testing"
	"time"
)

func TestPercentage(t *testing.T) {
	c := NewCalculator(4)
	if got := c.Percentage(); got != 0 {
		t.Errorf("expected 0%%, got %v", got)
	}

	c.CompleteStep("a")
	c.CompleteStep("b")
	if got := c.Percentage(); got != 50 {
		t.Errorf("expected 50%%, got %v", got)
	}
}

func TestPercentageZeroSteps(t *testing.T) {
	c := NewCalculator(0)
	if got := c.Percentage(); got != 0 {
		t.Errorf("expected 0%% for zero planned steps, got %v", got)
	}
}

func TestPercentageMayExceedHundred(t *testing.T) {
	c := NewCalculator(2)
	c.CompleteStep("a")
	c.CompleteStep("b")
	c.CompleteStep("c")
	if got := c.Percentage(); got != 150 {
		t.Errorf("expected unclamped 150%%, got %v", got)
	}
}

func TestCompleteStepIdempotent(t *testing.T) {
	c := NewCalculator(2)
	c.CompleteStep("a")
	c.CompleteStep("a")
	if got := c.CompletedSteps(); got != 1 {
		t.Errorf("expected 1 completed step, got %d", got)
	}
}

func TestEstimateRemainingBeforeAnyCompletion(t *testing.T) {
	c := NewCalculator(3)
	c.StartStep("a")
	if _, ok := c.EstimateRemaining(); ok {
		t.Error("expected no estimate before any step completed")
	}
}

func TestEstimateRemainingOnlineAverage(t *testing.T) {
	c := NewCalculator(4)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.StartStep("a")
	now = now.Add(10 * time.Second)
	c.CompleteStep("a")
	now = now.Add(10 * time.Second)
	c.CompleteStep("b")

	// 20s elapsed over 2 completed steps = 10s average, 2 steps remain.
	est, ok := c.EstimateRemaining()
	if !ok {
		t.Fatal("expected an estimate")
	}
	if est != 20*time.Second {
		t.Errorf("expected 20s, got %s", est)
	}
}

func TestEstimateRemainingAllDone(t *testing.T) {
	c := NewCalculator(1)
	c.StartStep("a")
	c.CompleteStep("a")
	est, ok := c.EstimateRemaining()
	if !ok || est != 0 {
		t.Errorf("expected (0, true), got (%s, %v)", est, ok)
	}
}

func TestWeightedProgress(t *testing.T) {
	c := NewCalculator(3)
	c.SetWeight("big", 3)

	got := c.WeightedProgress(map[string]float64{
		"big":   100,
		"small": 0,
	})
	// (3*100 + 1*0) / 4 = 75
	if got != 75 {
		t.Errorf("expected 75, got %d", got)
	}
}

func TestWeightedProgressClampsInput(t *testing.T) {
	c := NewCalculator(2)
	got := c.WeightedProgress(map[string]float64{
		"a": 150,
		"b": -10,
	})
	// Clamped to (100 + 0) / 2 = 50.
	if got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
}

func TestWeightedProgressEmptyMap(t *testing.T) {
	c := NewCalculator(2)
	if got := c.WeightedProgress(nil); got != 0 {
		t.Errorf("expected 0 for empty map, got %d", got)
	}
}

func TestEstimateInitial(t *testing.T) {
	c := NewCalculator(4)
	c.baseTimePerStep = 10 * time.Second

	if got := c.EstimateInitial(0); got != 40*time.Second {
		t.Errorf("complexity 0: expected 40s, got %s", got)
	}
	if got := c.EstimateInitial(1); got != 120*time.Second {
		t.Errorf("complexity 1: expected 120s, got %s", got)
	}
	if got := c.EstimateInitial(-5); got != 40*time.Second {
		t.Errorf("negative complexity clamps to 0: expected 40s, got %s", got)
	}
}
