package internal

import (
	"github.com/starford/snapcode/internal/history"
	"github.com/starford/snapcode/internal/sse"
	"github.com/starford/snapcode/internal/watch"
)

// buildRecord converts a rebuild outcome into a history row.
func buildRecord(o watch.Outcome, output string) history.Build {
	b := history.Build{
		Trigger:     string(o.Trigger),
		TriggerPath: o.Path,
		Output:      output,
		StartedAt:   o.Started,
	}
	if o.Result != nil {
		b.Output = o.Result.Output
		b.Duration = o.Result.Duration
		b.Files = o.Result.Files
		b.Skipped = len(o.Result.Errors)
		b.Bytes = o.Result.Bytes
		b.Checksum = o.Result.Checksum
	}
	if o.Err != nil {
		b.Error = o.Err.Error()
	}
	return b
}

// buildEvent converts a rebuild outcome into an SSE payload.
func buildEvent(o watch.Outcome) sse.BuildEvent {
	ev := sse.BuildEvent{
		Trigger: string(o.Trigger),
		Path:    o.Path,
	}
	if o.Result != nil {
		ev.Files = o.Result.Files
		ev.Bytes = o.Result.Bytes
		ev.Checksum = o.Result.Checksum
	}
	if o.Err != nil {
		ev.Error = o.Err.Error()
	}
	return ev
}
