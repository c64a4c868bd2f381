package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/lattice/pkg/models"
)

// The arena owns every task in a run. Parents hold child ids, children
// hold the parent id; no task holds a pointer into another.

// newTask creates a task in the arena and links it to its parent.
func (e *Engine) newTask(parentID, description string, depth int) models.Task {
	t := models.Task{
		ID:          "task-" + uuid.NewString(),
		ParentID:    parentID,
		Description: description,
		Status:      models.TaskStatusPending,
		Metadata:    models.TaskMetadata{Depth: depth},
		CreatedAt:   time.Now(),
	}
	t.AddMessage("user", description)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks[t.ID] = &t
	if parent, ok := e.tasks[parentID]; ok {
		parent.Children = append(parent.Children, t.ID)
	}
	return t
}

// Task returns a snapshot of the task with the given id.
func (e *Engine) Task(id string) (models.Task, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.tasks[id]
	if !ok {
		return models.Task{}, false
	}
	return cloneTask(t), true
}

// Tasks returns a snapshot of every task in the arena.
func (e *Engine) Tasks() []models.Task {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.Task, 0, len(e.tasks))
	for _, t := range e.tasks {
		out = append(out, cloneTask(t))
	}
	return out
}

// update applies a mutation to a task under the arena lock.
func (e *Engine) update(id string, fn func(t *models.Task)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.tasks[id]; ok {
		fn(t)
	}
}

// markInProgress moves a pending task to in-progress.
func (e *Engine) markInProgress(id string) {
	e.update(id, func(t *models.Task) {
		if t.Status == models.TaskStatusPending {
			t.Status = models.TaskStatusInProgress
		}
	})
}

// finishTask moves a task to a terminal state and sets its result.
// A task already terminal is left untouched; terminal states are set
// exactly once.
func (e *Engine) finishTask(id string, status models.TaskStatus, result *models.Result) {
	e.update(id, func(t *models.Task) {
		if t.Status.Terminal() {
			return
		}
		t.Status = status
		t.Result = result
		now := time.Now()
		t.CompletedAt = &now
	})
}

// completeTask terminates a task successfully.
func (e *Engine) completeTask(id string, result *models.Result) {
	e.finishTask(id, models.TaskStatusCompleted, result)
}

// failTask terminates a task with a failure.
func (e *Engine) failTask(id string, result *models.Result) {
	e.finishTask(id, models.TaskStatusFailed, result)
}

// setClassification caches the complexity label on the task metadata.
func (e *Engine) setClassification(id string, c models.Classification) {
	e.update(id, func(t *models.Task) {
		if t.Metadata.Classification == models.ClassificationUnset {
			t.Metadata.Classification = c
		}
	})
}

// setPlan stores the decomposition plan on the task metadata.
func (e *Engine) setPlan(id string, subtasks []models.SubtaskSpec) {
	e.update(id, func(t *models.Task) {
		t.Metadata.IsDecomposed = true
		t.Metadata.PlannedSubtasks = subtasks
		t.Metadata.CurrentSubtaskIndex = 0
	})
}

// advanceSubtask moves the plan cursor past the current subtask.
func (e *Engine) advanceSubtask(id string) {
	e.update(id, func(t *models.Task) {
		t.Metadata.CurrentSubtaskIndex++
	})
}

// insertSubtask places a new unplanned subtask immediately after the
// current position, so it executes next.
func (e *Engine) insertSubtask(id string, spec models.SubtaskSpec) {
	e.update(id, func(t *models.Task) {
		idx := t.Metadata.CurrentSubtaskIndex + 1
		planned := t.Metadata.PlannedSubtasks
		if idx > len(planned) {
			idx = len(planned)
		}
		out := make([]models.SubtaskSpec, 0, len(planned)+1)
		out = append(out, planned[:idx]...)
		out = append(out, spec)
		out = append(out, planned[idx:]...)
		t.Metadata.PlannedSubtasks = out
	})
}

// appendSubtask adds an ad-hoc subtask to the end of the plan.
func (e *Engine) appendSubtask(id string, spec models.SubtaskSpec) {
	e.update(id, func(t *models.Task) {
		t.Metadata.PlannedSubtasks = append(t.Metadata.PlannedSubtasks, spec)
	})
}

// addMessage appends to a task's conversation log under the arena lock.
func (e *Engine) addMessage(id, role, content string) {
	e.update(id, func(t *models.Task) {
		t.AddMessage(role, content)
	})
}

// cloneTask copies a task so callers cannot mutate arena state.
func cloneTask(t *models.Task) models.Task {
	out := *t
	out.Children = append([]string(nil), t.Children...)
	out.Conversation = append([]models.Message(nil), t.Conversation...)
	out.Metadata.PlannedSubtasks = append([]models.SubtaskSpec(nil), t.Metadata.PlannedSubtasks...)
	if t.Result != nil {
		r := *t.Result
		out.Result = &r
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		out.CompletedAt = &ts
	}
	return out
}
