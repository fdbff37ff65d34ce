package demo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/incident-demo/internal/logging"
	"github.com/signalsfoundry/incident-demo/model"
	"github.com/signalsfoundry/incident-demo/timectrl"
)

var (
	// ErrUnknownScenario indicates a scenario type outside the catalog.
	ErrUnknownScenario = errors.New("unknown scenario")
	// ErrIncidentNotFound indicates a requested incident does not exist.
	ErrIncidentNotFound = errors.New("incident not found")
	// ErrTransitionNotAllowed indicates the status edge does not exist.
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
	// ErrRoleNotPermitted indicates the edge exists but the role may not take it.
	ErrRoleNotPermitted = errors.New("role not permitted to make this transition")
)

// BaseTickInterval is the tick duration at playback speed 1.
const BaseTickInterval = time.Second

// EngineMetricsRecorder receives engine activity for Prometheus-friendly
// counters and gauges.
type EngineMetricsRecorder interface {
	ObserveTick(scenario model.ScenarioType, elapsed int)
	ObserveTransition(status model.AlertStatus, actor string)
	ObserveRejectedUpdate(reason string)
	SetEngineState(enabled, scenarioActive bool, speed float64)
}

// Snapshot is a deep copy of the engine state at one instant.
type Snapshot struct {
	Enabled        bool                  `json:"isEnabled"`
	ActiveScenario model.ScenarioType    `json:"activeScenario"`
	IsPlaying      bool                  `json:"isPlaying"`
	PlaybackSpeed  float64               `json:"playbackSpeed"`
	ElapsedTime    int                   `json:"elapsedTime"`
	Incidents      []model.Incident      `json:"incidents"`
	Responders     []model.Responder     `json:"responders"`
	CitizenReports []model.CitizenReport `json:"citizenReports"`
	ActivityLog    []model.ActivityEntry `json:"activityLog"`
}

// HasScenario reports whether a scenario is active in the snapshot.
func (s Snapshot) HasScenario() bool { return s.ActiveScenario != "" }

// Incident returns the incident with the given ID from the snapshot.
func (s Snapshot) Incident(id string) (model.Incident, bool) {
	for _, inc := range s.Incidents {
		if inc.ID == id {
			return inc, true
		}
	}
	return model.Incident{}, false
}

// Engine simulates one incident scenario on a fixed tick script and
// enforces who may change an incident's status outside the script.
//
// All state is guarded by mu. The script timer runs on its own goroutine
// and re-enters through tick, which discards callbacks from timers that
// have since been replaced or cancelled.
type Engine struct {
	mu sync.Mutex

	clock   timectrl.SimClock
	ticker  timectrl.Ticker
	log     logging.Logger
	metrics EngineMetricsRecorder
	newID   func() string

	enabled        bool
	activeScenario model.ScenarioType
	playing        bool
	speed          float64
	elapsed        int
	incidents      []model.Incident
	responders     []model.Responder
	reports        []model.CitizenReport
	activity       []model.ActivityEntry

	// timerGen identifies the current timer; callbacks from older timers
	// are ignored.
	timerGen    uint64
	cancelTimer func()
	timerKey    timerKey

	subs    map[int]chan Snapshot
	nextSub int
	closed  bool
}

// timerKey captures the inputs the script timer depends on.
type timerKey struct {
	enabled  bool
	playing  bool
	scenario model.ScenarioType
	speed    float64
	finished bool
}

// EngineOption customises Engine construction.
type EngineOption func(*Engine)

// WithClock sets the clock used to stamp records.
func WithClock(c timectrl.SimClock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithTicker sets the timer source that drives the script.
func WithTicker(t timectrl.Ticker) EngineOption {
	return func(e *Engine) {
		e.ticker = t
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m EngineMetricsRecorder) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithIDGenerator overrides how activity log IDs for status updates are made.
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		e.newID = fn
	}
}

// NewEngine constructs an idle, disabled engine. Without options it stamps
// records with wall-clock time and ticks on a wall-clock timer.
func NewEngine(log logging.Logger, opts ...EngineOption) *Engine {
	if log == nil {
		log = logging.Noop()
	}
	e := &Engine{
		log:   log,
		newID: uuid.NewString,
		subs:  make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.clock == nil || e.ticker == nil {
		tc := timectrl.NewTimeController(nil)
		if e.clock == nil {
			e.clock = tc
		}
		if e.ticker == nil {
			e.ticker = tc
		}
	}
	e.resetLocked()
	e.recordStateLocked()
	return e
}

// resetLocked restores the construction-time state.
func (e *Engine) resetLocked() {
	e.enabled = false
	e.speed = 1
	e.clearScenarioLocked()
}

// clearScenarioLocked returns the engine to Idle without touching the
// enabled flag or playback speed.
func (e *Engine) clearScenarioLocked() {
	e.activeScenario = ""
	e.playing = false
	e.elapsed = 0
	e.incidents = []model.Incident{}
	e.reports = []model.CitizenReport{}
	e.activity = []model.ActivityEntry{}
	e.responders = initialRoster()
}

// AvailableScenarios returns the static scenario catalog.
func (e *Engine) AvailableScenarios() []model.Scenario {
	return slices.Clone(scenarioCatalog)
}

// Scenario looks up one catalog entry.
func (e *Engine) Scenario(id model.ScenarioType) (model.Scenario, bool) {
	for _, s := range scenarioCatalog {
		if s.ID == id {
			return s, true
		}
	}
	return model.Scenario{}, false
}

// CanTransitionTo reports whether role may move an incident from current to
// target. It consults the same table as UpdateIncidentStatus.
func (e *Engine) CanTransitionTo(current, target model.AlertStatus, role model.Role) bool {
	return CanTransitionTo(current, target, role)
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Enabled:        e.enabled,
		ActiveScenario: e.activeScenario,
		IsPlaying:      e.playing,
		PlaybackSpeed:  e.speed,
		ElapsedTime:    e.elapsed,
		Incidents:      slices.Clone(e.incidents),
		Responders:     slices.Clone(e.responders),
		CitizenReports: slices.Clone(e.reports),
		ActivityLog:    slices.Clone(e.activity),
	}
}

// Incident returns a copy of the incident with the given ID.
func (e *Engine) Incident(id string) (model.Incident, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.incidentIndexLocked(id); i >= 0 {
		return e.incidents[i], true
	}
	return model.Incident{}, false
}

// ToggleDemoMode flips the enabled flag. Disabling while a scenario is
// active also stops the scenario; enabling never starts one.
func (e *Engine) ToggleDemoMode(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.enabled = !e.enabled
	if !e.enabled && e.activeScenario != "" {
		e.log.Info(ctx, "demo mode disabled; stopping active scenario",
			logging.String("scenario", string(e.activeScenario)))
		e.clearScenarioLocked()
	}
	e.log.Info(ctx, "demo mode toggled", logging.Bool("enabled", e.enabled))
	e.commitLocked(ctx, false)
}

// StartScenario seeds the given scenario and starts playback from tick 0.
// Starting while another scenario runs replaces it. Starting while demo
// mode is disabled is accepted; ticks begin once demo mode is enabled.
func (e *Engine) StartScenario(ctx context.Context, s model.ScenarioType) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	seed, ok := seedScenario(s, e.clock.Now())
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScenario, s)
	}

	e.activeScenario = s
	e.playing = true
	e.elapsed = 0
	e.incidents = seed.incidents
	e.reports = seed.reports
	e.activity = seed.log

	firstIncident := ""
	if len(e.incidents) > 0 {
		firstIncident = e.incidents[0].ID
	}
	for i := range e.responders {
		if i == 0 {
			e.responders[i].Status = model.ResponderEnRoute
			e.responders[i].AssignedIncidentID = firstIncident
			continue
		}
		e.responders[i].Status = model.ResponderAvailable
		e.responders[i].AssignedIncidentID = ""
	}

	e.log.Info(ctx, "scenario started",
		logging.String("scenario", string(s)),
		logging.String("incident_id", firstIncident),
		logging.Bool("demo_enabled", e.enabled),
	)
	e.commitLocked(ctx, true)
	return nil
}

// StopScenario clears all scenario content and restores the idle roster.
// No script tick mutates state after StopScenario returns.
func (e *Engine) StopScenario(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.activeScenario != "" {
		e.log.Info(ctx, "scenario stopped",
			logging.String("scenario", string(e.activeScenario)),
			logging.Int("elapsed", e.elapsed),
		)
	}
	e.clearScenarioLocked()
	e.commitLocked(ctx, false)
}

// TogglePlayback pauses or resumes the active scenario without resetting
// elapsed time. It does nothing when no scenario is active.
func (e *Engine) TogglePlayback(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.activeScenario == "" {
		e.log.Debug(ctx, "playback toggle ignored; no active scenario")
		return
	}
	e.playing = !e.playing
	e.log.Info(ctx, "playback toggled",
		logging.Bool("playing", e.playing),
		logging.Int("elapsed", e.elapsed),
	)
	e.commitLocked(ctx, false)
}

// SetPlaybackSpeed stores the speed multiplier unvalidated. Ticks fire every
// BaseTickInterval/speed; a speed that is not a positive finite number
// halts ticking until it is corrected.
func (e *Engine) SetPlaybackSpeed(ctx context.Context, speed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.speed = speed
	if !validSpeed(speed) {
		e.log.Warn(ctx, "playback speed cannot drive the script timer", logging.Float64("speed", speed))
	}
	e.commitLocked(ctx, false)
}

// ResetDemo restores the construction-time state, including disabling demo
// mode.
func (e *Engine) ResetDemo(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetLocked()
	e.log.Info(ctx, "demo reset")
	e.commitLocked(ctx, false)
}

// UpdateIncidentStatus moves an incident to status on behalf of role. It
// returns false, with no side effects, for an unknown incident or a
// transition the edge table or role gate refuses.
func (e *Engine) UpdateIncidentStatus(ctx context.Context, incidentID string, status model.AlertStatus, role model.Role) bool {
	_, err := e.UpdateIncidentStatusErr(ctx, incidentID, status, role)
	return err == nil
}

// UpdateIncidentStatusErr is UpdateIncidentStatus reporting why a request
// was refused. On success it returns the updated incident.
func (e *Engine) UpdateIncidentStatusErr(ctx context.Context, incidentID string, status model.AlertStatus, role model.Role) (model.Incident, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.incidentIndexLocked(incidentID)
	if i < 0 {
		e.rejectLocked(ctx, "not_found", incidentID, status, role)
		return model.Incident{}, fmt.Errorf("%w: %q", ErrIncidentNotFound, incidentID)
	}
	if err := CheckTransition(e.incidents[i].Status, status, role); err != nil {
		reason := "transition"
		if errors.Is(err, ErrRoleNotPermitted) {
			reason = "role"
		}
		e.rejectLocked(ctx, reason, incidentID, status, role)
		return model.Incident{}, err
	}

	now := e.clock.Now()
	label := ActorLabel(role)
	e.setIncidentStatusLocked(i, status, label, now)
	e.appendLogLocked(model.ActivityEntry{
		ID:        "status-" + e.newID(),
		Category:  model.LogSystem,
		Message:   fmt.Sprintf("Alert %s %s by %s", incidentID, status.Upper(), label),
		Timestamp: now,
	})

	e.log.Info(ctx, "incident status updated",
		logging.String("incident_id", incidentID),
		logging.String("status", string(status)),
		logging.String("role", string(role)),
	)
	e.publishLocked()
	return e.incidents[i], nil
}

func (e *Engine) rejectLocked(ctx context.Context, reason, incidentID string, status model.AlertStatus, role model.Role) {
	e.log.Debug(ctx, "incident status update rejected",
		logging.String("reason", reason),
		logging.String("incident_id", incidentID),
		logging.String("status", string(status)),
		logging.String("role", string(role)),
	)
	if e.metrics != nil {
		e.metrics.ObserveRejectedUpdate(reason)
	}
}

// setIncidentStatusLocked is the unchecked status mutator shared by the
// script and UpdateIncidentStatusErr. Callers are responsible for the
// edge-table and role checks.
func (e *Engine) setIncidentStatusLocked(i int, status model.AlertStatus, actor string, now time.Time) {
	inc := &e.incidents[i]
	inc.Status = status
	switch status {
	case model.StatusAcknowledged:
		inc.AcknowledgedBy = actor
		inc.AcknowledgedAt = now
	case model.StatusResolved:
		inc.ResolvedBy = actor
		inc.ResolvedAt = now
	}
	if e.metrics != nil {
		e.metrics.ObserveTransition(status, actor)
	}
}

func (e *Engine) appendLogLocked(entry model.ActivityEntry) {
	e.activity = append(e.activity, entry)
}

func (e *Engine) incidentIndexLocked(id string) int {
	for i := range e.incidents {
		if e.incidents[i].ID == id {
			return i
		}
	}
	return -1
}

// Subscribe returns a channel that receives a snapshot after every state
// change, starting with the current state. Slow readers only see the most
// recent snapshot. The cancel function unsubscribes and closes the channel.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if e.closed {
		close(ch)
		return ch, func() {}
	}
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	ch <- e.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if sub, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(sub)
			}
		})
	}
}

// Close stops the script timer and closes all subscriptions. The engine
// keeps answering commands afterwards but never ticks again.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	e.stopTimerLocked()
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
}

// commitLocked reconciles the timer, records gauges, and notifies
// subscribers after a command.
func (e *Engine) commitLocked(ctx context.Context, restart bool) {
	e.reconcileTimerLocked(ctx, restart)
	e.recordStateLocked()
	e.publishLocked()
}

func (e *Engine) recordStateLocked() {
	if e.metrics != nil {
		e.metrics.SetEngineState(e.enabled, e.activeScenario != "", e.speed)
	}
}

func (e *Engine) publishLocked() {
	if len(e.subs) == 0 {
		return
	}
	snap := e.snapshotLocked()
	for _, ch := range e.subs {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so the reader sees the latest one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func validSpeed(speed float64) bool {
	return speed > 0 && !math.IsInf(speed, 0) && !math.IsNaN(speed)
}

// tickInterval converts a playback speed into a timer interval. Speed
// divides the base interval, so higher speed means faster ticks.
func tickInterval(speed float64) time.Duration {
	d := time.Duration(float64(BaseTickInterval) / speed)
	if d <= 0 {
		d = time.Nanosecond
	}
	return d
}

func (e *Engine) shouldTickLocked() bool {
	return !e.closed &&
		e.enabled &&
		e.playing &&
		e.activeScenario != "" &&
		e.elapsed < ScriptLength &&
		validSpeed(e.speed)
}

// reconcileTimerLocked starts, stops or restarts the script timer so that
// it runs exactly when shouldTickLocked holds, at the current speed. Any
// change to the timer inputs restarts it; restart forces a fresh timer even
// when the inputs are unchanged.
func (e *Engine) reconcileTimerLocked(ctx context.Context, restart bool) {
	key := timerKey{
		enabled:  e.enabled,
		playing:  e.playing,
		scenario: e.activeScenario,
		speed:    e.speed,
		finished: e.elapsed >= ScriptLength,
	}
	want := e.shouldTickLocked()

	if e.cancelTimer != nil && want && !restart && key == e.timerKey {
		return
	}
	e.stopTimerLocked()
	if !want {
		return
	}

	e.timerGen++
	gen := e.timerGen
	interval := tickInterval(e.speed)
	e.timerKey = key
	e.cancelTimer = e.ticker.Every(interval, func() { e.tick(gen) })
	e.log.Debug(ctx, "script timer started",
		logging.Duration("interval", interval),
		logging.Int("elapsed", e.elapsed),
	)
}

func (e *Engine) stopTimerLocked() {
	if e.cancelTimer == nil {
		return
	}
	e.cancelTimer()
	e.cancelTimer = nil
	// Invalidate callbacks already queued behind the lock.
	e.timerGen++
}

// tick advances the script by one tick. It is the only place elapsed time
// moves.
func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.timerGen || e.cancelTimer == nil || !e.shouldTickLocked() {
		return
	}

	e.elapsed++
	e.applyCheckpointLocked(e.elapsed, e.clock.Now())
	if e.metrics != nil {
		e.metrics.ObserveTick(e.activeScenario, e.elapsed)
	}

	if e.elapsed >= ScriptLength {
		e.log.Info(context.Background(), "scenario script completed",
			logging.String("scenario", string(e.activeScenario)),
			logging.Int("elapsed", e.elapsed),
		)
		e.reconcileTimerLocked(context.Background(), false)
		e.recordStateLocked()
	}
	e.publishLocked()
}
