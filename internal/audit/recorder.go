package audit

import (
	"context"
	"encoding/json"
	"time"

	"memberhub.org/internal/ids"
	"memberhub.org/internal/obs"
)

// Recorder writes system events. Every write is best-effort: a failed sink,
// publisher, or marshal must never fail the operation being described, so
// errors surface only as local warnings.
type Recorder struct {
	sink EventSink
	pub  Publisher
	now  func() time.Time
}

// NewRecorder builds a recorder. Both sink and publisher may be nil; the
// JSON diagnostic line is always emitted.
func NewRecorder(sink EventSink, pub Publisher) *Recorder {
	return &Recorder{sink: sink, pub: pub, now: time.Now}
}

// Record logs one system event.
func (r *Recorder) Record(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.now().UTC()
	}

	r.emitLine(e)

	if r.sink != nil {
		if err := r.sink.Append(ctx, &e); err != nil {
			obs.Warn("system event sink write failed", map[string]any{
				"event": e.Type,
				"error": err.Error(),
			})
		}
	}
	if r.pub != nil {
		if err := r.pub.Publish(ctx, e); err != nil {
			obs.Warn("system event publish failed", map[string]any{
				"event": e.Type,
				"error": err.Error(),
			})
		}
	}
}

// emitLine writes the event as one structured JSON log line.
func (r *Recorder) emitLine(e Event) {
	entry := map[string]any{
		"ts":    e.OccurredAt.Format(time.RFC3339Nano),
		"type":  "system_event",
		"event": e.Type,
	}
	if e.ActorID != "" {
		entry["actor_id"] = e.ActorID
	}
	if e.TargetUserID != "" {
		entry["target_user_id"] = e.TargetUserID
	}
	if e.Description != "" {
		entry["description"] = e.Description
	}
	data, err := json.Marshal(entry)
	if err != nil {
		obs.Warn("system event marshal failed", map[string]any{"event": e.Type})
		return
	}
	obs.Logger().Println(string(data))
}
