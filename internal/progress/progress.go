// Package progress tracks step completion and produces percentage and
// remaining-time estimates for a running task.
package progress

import (
	"math"
	"sync"
	"time"
)

// DefaultBaseTimePerStep is the assumed duration of one step before any
// step has actually completed.
const DefaultBaseTimePerStep = 30 * time.Second

// Calculator tracks planned and completed steps for one task.
type Calculator struct {
	mu              sync.Mutex
	totalSteps      int
	completedSteps  int
	weights         map[string]int
	started         map[string]time.Time
	completed       map[string]time.Time
	firstStart      time.Time
	baseTimePerStep time.Duration
	now             func() time.Time
}

// NewCalculator creates a calculator for the given number of planned steps.
func NewCalculator(totalSteps int) *Calculator {
	return &Calculator{
		totalSteps:      totalSteps,
		weights:         make(map[string]int),
		started:         make(map[string]time.Time),
		completed:       make(map[string]time.Time),
		baseTimePerStep: DefaultBaseTimePerStep,
		now:             time.Now,
	}
}

// SetWeight assigns a relative weight to a named step. Steps default to 1.
func (c *Calculator) SetWeight(step string, weight int) {
	if weight < 1 {
		weight = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.weights[step] = weight
}

// StartStep records that a named step began.
func (c *Calculator) StartStep(step string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.firstStart.IsZero() {
		c.firstStart = now
	}
	c.started[step] = now
}

// CompleteStep records that a named step finished.
func (c *Calculator) CompleteStep(step string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, done := c.completed[step]; done {
		return
	}
	c.completed[step] = c.now()
	c.completedSteps++
}

// Percentage returns 100 * completed / total. Zero planned steps yield 0.
// Completing more steps than planned pushes the value past 100; that is
// accepted and not clamped.
func (c *Calculator) Percentage() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.totalSteps == 0 {
		return 0
	}
	return 100 * float64(c.completedSteps) / float64(c.totalSteps)
}

// CompletedSteps returns the number of completed steps.
func (c *Calculator) CompletedSteps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completedSteps
}

// EstimateRemaining returns the projected remaining duration, or false
// until at least one step has completed. The estimate is a plain online
// average: elapsed time divided by completed steps, times steps left.
func (c *Calculator) EstimateRemaining() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.completedSteps == 0 || c.firstStart.IsZero() {
		return 0, false
	}
	remaining := c.totalSteps - c.completedSteps
	if remaining <= 0 {
		return 0, true
	}
	elapsed := c.now().Sub(c.firstStart)
	avg := elapsed / time.Duration(c.completedSteps)
	return avg * time.Duration(remaining), true
}

// WeightedProgress combines per-subtask percentages (0-100, clamped)
// into one weighted percentage, rounded to the nearest integer. Subtasks
// without an assigned weight count as 1. An empty map yields 0.
func (c *Calculator) WeightedProgress(subtaskPct map[string]float64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(subtaskPct) == 0 {
		return 0
	}

	var weightedSum, totalWeight float64
	for step, pct := range subtaskPct {
		if pct < 0 {
			pct = 0
		} else if pct > 100 {
			pct = 100
		}
		weight := 1
		if w, ok := c.weights[step]; ok {
			weight = w
		}
		weightedSum += float64(weight) * pct
		totalWeight += float64(weight)
	}
	return int(math.Round(weightedSum / totalWeight))
}

// EstimateInitial projects the total duration before execution starts.
// Complexity scales the per-step base time: 0 means baseline, 1 triples it.
func (c *Calculator) EstimateInitial(complexity float64) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if complexity < 0 {
		complexity = 0
	}
	perStep := float64(c.baseTimePerStep) * (1 + 2*complexity)
	return time.Duration(float64(c.totalSteps) * perStep)
}
