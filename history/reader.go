package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// ListRecent returns up to limit outcomes from the SQLite history, newest
// first. Used by the `inkdashd history` command.
func ListRecent(ctx context.Context, dbPath string, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = 20
	}
	db, err := sql.Open("sqlite", resolveDBPath(dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "history: open sqlite")
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT cycle_id, started_at, playlist_id, plugin_id, instance_id,
		manual, status, step, image_hash, error, elapsed_ms
		FROM `+outcomeTable+` ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "history: query outcomes")
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var (
			o       Outcome
			started string
			manual  int
		)
		if err := rows.Scan(&o.CycleID, &started, &o.PlaylistID, &o.PluginID, &o.InstanceID,
			&manual, &o.Status, &o.Step, &o.ImageHash, &o.Error, &o.ElapsedMS); err != nil {
			return nil, errors.Wrap(err, "history: scan outcome")
		}
		if ts, err := time.Parse(time.RFC3339Nano, started); err == nil {
			o.StartedAt = ts
		}
		o.Manual = manual != 0
		outcomes = append(outcomes, o)
	}
	return outcomes, errors.Wrap(rows.Err(), "history: iterate outcomes")
}
