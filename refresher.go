// Package inkdash implements the content-refresh loop for a playlist-driven
// display device: one background goroutine wakes on an interval or an
// external signal, runs the selected plugin, dedups identical frames against
// the last displayed hash and records the outcome.
package inkdash

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/inkdash/inkdash/device"
	"github.com/inkdash/inkdash/display"
	"github.com/inkdash/inkdash/history"
	"github.com/inkdash/inkdash/imaging"
	"github.com/inkdash/inkdash/model"
	"github.com/inkdash/inkdash/plugins"
)

// Config controls Refresher collaborators. DeviceConfig and Display are
// required; the rest default to the builtin registry, a no-op recorder and
// the wall clock.
type Config struct {
	DeviceConfig *device.Config
	Display      display.Manager
	Registry     plugins.Resolver
	Recorder     history.Recorder
	Clock        func() time.Time
}

// Refresher owns the wake/sleep cycle, the single-slot manual request and
// the synchronous wait contract. One instance runs one background loop;
// instances are independent, so tests can run several side by side.
type Refresher struct {
	cfg      *device.Config
	display  display.Manager
	registry plugins.Resolver
	recorder history.Recorder
	now      func() time.Time

	mu      sync.Mutex
	running bool
	manual  RefreshAction
	cycle   *cycleResult
	wake    chan struct{}
	wg      sync.WaitGroup
}

// cycleResult is the per-cycle completion token. Waiters capture the pointer
// for the cycle they observe and read err only after that cycle's own done
// channel closes, so a later cycle's reset is never visible mid-wait.
type cycleResult struct {
	done chan struct{}
	err  error
}

// NewRefresher validates the config and fills defaults.
func NewRefresher(cfg Config) (*Refresher, error) {
	if cfg.DeviceConfig == nil {
		return nil, errors.New("refresher: device config cannot be nil")
	}
	if cfg.Display == nil {
		return nil, errors.New("refresher: display manager cannot be nil")
	}
	if cfg.Registry == nil {
		cfg.Registry = plugins.DefaultRegistry()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = history.Noop{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Refresher{
		cfg:      cfg.DeviceConfig,
		display:  cfg.Display,
		registry: cfg.Registry,
		recorder: cfg.Recorder,
		now:      cfg.Clock,
		wake:     make(chan struct{}, 1),
		cycle:    &cycleResult{done: make(chan struct{})},
	}, nil
}

// Start launches the background loop. Starting an already running refresher
// is an error.
func (r *Refresher) Start() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("refresher: already running")
	}
	r.running = true
	r.mu.Unlock()
	r.wg.Add(1)
	go r.run()
	log.Info().Msg("refresh loop started")
	return nil
}

// Stop flips the running flag, wakes the loop and blocks until the
// background goroutine has exited. A cycle already executing runs to
// completion; no new cycle starts afterwards. Safe to call more than once.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()
	r.notify()
	r.wg.Wait()
	log.Info().Msg("refresh loop stopped")
}

// ManualUpdate queues an immediate refresh of the given playlist entry,
// replacing any unconsumed previous request (last writer wins, no queueing),
// and wakes the loop. Safe from any goroutine at any time; a request made
// while a cycle executes is consumed by the next cycle.
func (r *Refresher) ManualUpdate(playlist *model.Playlist, instance *model.PluginInstance) {
	r.mu.Lock()
	r.manual = &PlaylistRefresh{Playlist: playlist, Instance: instance}
	r.mu.Unlock()
	r.notify()
}

// WaitForRefresh blocks until the in-flight (or next) cycle completes and
// returns its unhandled error, nil on a clean cycle. Step-level failures
// abort the cycle's action but the cycle still completes cleanly; they
// surface only in logs and the outcome history. Returns nil immediately
// once the loop has stopped.
func (r *Refresher) WaitForRefresh() error {
	r.mu.Lock()
	cycle := r.cycle
	r.mu.Unlock()
	<-cycle.done
	return cycle.err
}

// RefreshOnce runs a single manual cycle synchronously, without the
// background loop. Intended for one-shot CLI use; must not be called while
// the loop is running.
func (r *Refresher) RefreshOnce(playlist *model.Playlist, instance *model.PluginInstance) error {
	return r.runCycle(&PlaylistRefresh{Playlist: playlist, Instance: instance})
}

// notify delivers a wake without blocking. The 1-buffered channel retains a
// signal sent while the loop is executing, so the following wait returns
// immediately instead of sleeping out the interval.
func (r *Refresher) notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Refresher) run() {
	defer r.wg.Done()
	for {
		// Re-read the interval every cycle so operators can retune it
		// without restarting.
		timer := time.NewTimer(r.cfg.Interval())
		select {
		case <-timer.C:
		case <-r.wake:
			timer.Stop()
		}

		r.mu.Lock()
		if !r.running {
			cycle := r.cycle
			r.mu.Unlock()
			// Release anyone blocked in WaitForRefresh.
			close(cycle.done)
			return
		}
		cycle := r.cycle
		action := r.manual
		r.manual = nil
		r.mu.Unlock()

		cycle.err = r.runCycle(action)

		r.mu.Lock()
		r.cycle = &cycleResult{done: make(chan struct{})}
		r.mu.Unlock()
		close(cycle.done)
	}
}

// runCycle executes one full cycle: determine the action, run the pipeline,
// persist the device config. Only failures escaping the isolated steps are
// returned; they surface to WaitForRefresh callers.
func (r *Refresher) runCycle(action RefreshAction) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("unhandled failure in refresh cycle: %v", p)
			log.Error().Str("panic", fmt.Sprint(p)).Msg("unhandled failure in refresh cycle")
		}
	}()

	ctx := context.Background()
	now := r.now()
	manual := action != nil
	if manual {
		log.Info().Str("plugin_id", action.PluginID()).Msg("manual update requested")
	} else {
		log.Info().Time("current_time", now).Msg("running interval refresh check")
		action = r.nextPlaylistAction(now)
	}

	if action != nil {
		outcome := r.runAction(ctx, action, manual, now)
		outcome.ElapsedMS = r.now().Sub(now).Milliseconds()
		r.recorder.Record(ctx, outcome)
	}

	// Epilogue: persist regardless of whether an action ran or aborted. A
	// write failure does not roll back the in-memory commit; the next
	// successful write captures it.
	if werr := r.cfg.WriteConfig(); werr != nil {
		log.Error().Err(werr).Msg("persist device config failed")
	}
	return nil
}

// nextPlaylistAction asks the playlist referenced by the last refresh for
// its next due entry. No playlist or no due entry means a no-op cycle.
func (r *Refresher) nextPlaylistAction(now time.Time) RefreshAction {
	latest := r.cfg.RefreshInfo()
	playlist := r.cfg.PlaylistManager().GetPlaylist(latest.PlaylistID)
	if playlist == nil {
		log.Debug().Str("playlist_id", latest.PlaylistID).Msg("no active playlist, skipping cycle")
		return nil
	}
	instance := playlist.NextPlugin(now)
	if instance == nil {
		log.Debug().Str("playlist_id", playlist.ID).Msg("no plugin due, skipping cycle")
		return nil
	}
	return &PlaylistRefresh{Playlist: playlist, Instance: instance}
}

// runAction executes the failure-isolated pipeline. Every step failure is
// logged with the responsible plugin, aborts the rest of the action and
// leaves the stored refresh snapshot untouched.
func (r *Refresher) runAction(ctx context.Context, action RefreshAction, manual bool, now time.Time) history.Outcome {
	template := action.RefreshInfo()
	outcome := history.Outcome{
		CycleID:    uuid.NewString(),
		StartedAt:  now,
		PlaylistID: template.PlaylistID,
		PluginID:   template.PluginID,
		Manual:     manual,
	}
	if pr, ok := action.(*PlaylistRefresh); ok {
		outcome.InstanceID = pr.InstanceID()
	}
	abort := func(step string, err error) history.Outcome {
		outcome.Status = history.StatusAborted
		outcome.Step = step
		if err != nil {
			outcome.Error = err.Error()
		}
		return outcome
	}

	latest := r.cfg.RefreshInfo()

	plugin := r.registry.Resolve(action.PluginID())
	if plugin == nil {
		log.Error().Str("plugin_id", action.PluginID()).Msg("could not load plugin instance")
		return abort("resolve", nil)
	}

	img, err := action.Execute(ctx, plugin, r.cfg, now)
	if err != nil {
		log.Error().Err(err).Str("plugin_id", action.PluginID()).Msg("plugin execution failed")
		return abort("execute", err)
	}

	hash, err := imaging.ComputeImageHash(img)
	if err != nil {
		log.Error().Err(err).Str("plugin_id", action.PluginID()).Msg("compute image hash failed")
		return abort("hash", err)
	}

	info := template
	info.RefreshTime = now
	info.ImageHash = hash
	outcome.ImageHash = hash

	if hash == latest.ImageHash {
		log.Info().Str("plugin_id", info.PluginID).Str("image_hash", hash).
			Msg("image already displayed, skipping refresh")
		outcome.Status = history.StatusSkipped
	} else {
		var imageSettings map[string]any
		if ps, ok := r.cfg.Plugin(action.PluginID()); ok {
			imageSettings = ps.ImageSettings
		}
		log.Info().Str("plugin_id", info.PluginID).Str("playlist_id", info.PlaylistID).
			Str("image_hash", hash).Msg("updating display")
		if err := r.display.DisplayImage(ctx, img, imageSettings); err != nil {
			log.Error().Err(err).Str("plugin_id", info.PluginID).Msg("display update failed")
			return abort("display", err)
		}
		outcome.Status = history.StatusDisplayed
	}

	// Commit even on a dedup skip: the snapshot records the last successful
	// evaluation, not the last panel write, and rotation depends on the
	// timestamp advancing.
	r.cfg.SetRefreshInfo(info)
	return outcome
}
