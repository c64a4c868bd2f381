package state

import (
	"log"

	"github.com/ShayCichocki/lattice/internal/engine"
)

// Hook returns an engine hook that persists terminal task transitions.
// Write failures are logged and swallowed; history is observability,
// never a reason to fail a run.
func (db *DB) Hook() engine.Hook {
	return func(ev engine.Event) {
		var status string
		switch ev.Type {
		case engine.EventTaskCompleted:
			status = "completed"
		case engine.EventTaskFailed:
			status = "failed"
		default:
			return
		}

		err := db.RecordTask(TaskRecord{
			RunID:       ev.RunID,
			TaskID:      ev.TaskID,
			ParentID:    ev.ParentID,
			Description: ev.Description,
			Depth:       ev.Depth,
			Status:      status,
			Detail:      ev.Message,
			RecordedAt:  ev.Timestamp,
		})
		if err != nil {
			log.Printf("[state] record task %s: %v", ev.TaskID, err)
		}
	}
}
