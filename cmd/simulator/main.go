// Command simulator plays one demo scenario headlessly and prints the
// activity log and incident status changes as the script advances.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/incident-demo/internal/demo"
	"github.com/signalsfoundry/incident-demo/internal/logging"
	"github.com/signalsfoundry/incident-demo/model"
)

// errIncomplete reports that the script did not finish before the run ended.
var errIncomplete = errors.New("scenario did not complete")

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	var (
		scenario string
		speed    float64
		timeout  time.Duration
		logLevel string
	)

	cmd := &cobra.Command{
		Use:          "simulator",
		Short:        "Play a demo scenario without the HTTP server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := model.ParseScenarioType(scenario)
			if err != nil {
				return err
			}
			log := logging.New(logging.Config{Level: logLevel, Output: cmd.ErrOrStderr()})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			engine := demo.NewEngine(log)
			defer engine.Close()
			return simulate(ctx, engine, st, speed, out)
		},
	}

	cmd.Flags().StringVarP(&scenario, "scenario", "s", string(model.ScenarioArmedRobbery), "scenario to play")
	cmd.Flags().Float64Var(&speed, "speed", 10, "playback speed multiplier")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "give up after this long (0 disables)")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "engine log level")
	return cmd
}

// simulate enables demo mode, starts the scenario and prints progress until
// the script completes or ctx ends.
func simulate(ctx context.Context, engine *demo.Engine, scenario model.ScenarioType, speed float64, out io.Writer) error {
	snapshots, unsubscribe := engine.Subscribe()
	defer unsubscribe()

	engine.SetPlaybackSpeed(ctx, speed)
	if !engine.Snapshot().Enabled {
		engine.ToggleDemoMode(ctx)
	}
	if err := engine.StartScenario(ctx, scenario); err != nil {
		return err
	}
	fmt.Fprintf(out, "playing %s at %gx\n", scenario, speed)

	final, err := follow(ctx, snapshots, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "completed %s after %d ticks\n", final.ActiveScenario, final.ElapsedTime)
	return nil
}

// follow prints activity-log entries and status changes from snapshots
// until one shows a completed script. Skipped intermediate snapshots are
// caught up from the next one received.
func follow(ctx context.Context, snapshots <-chan demo.Snapshot, out io.Writer) (demo.Snapshot, error) {
	p := &progressPrinter{out: out, statuses: map[string]model.AlertStatus{}}
	var last demo.Snapshot
	for {
		select {
		case <-ctx.Done():
			return last, fmt.Errorf("%w at tick %d: %v", errIncomplete, last.ElapsedTime, ctx.Err())
		case snap, ok := <-snapshots:
			if !ok {
				return last, fmt.Errorf("%w: engine closed", errIncomplete)
			}
			if !snap.HasScenario() {
				continue
			}
			if last.HasScenario() && snap.ActiveScenario != last.ActiveScenario {
				p.reset()
			}
			last = snap
			p.print(snap)
			if completed(snap) {
				return snap, nil
			}
		}
	}
}

func completed(s demo.Snapshot) bool {
	return s.HasScenario() && !s.IsPlaying && s.ElapsedTime >= demo.ScriptLength
}

type progressPrinter struct {
	out      io.Writer
	logSeen  int
	statuses map[string]model.AlertStatus
}

func (p *progressPrinter) reset() {
	p.logSeen = 0
	p.statuses = map[string]model.AlertStatus{}
}

func (p *progressPrinter) print(s demo.Snapshot) {
	if len(s.ActivityLog) < p.logSeen {
		p.logSeen = 0
	}
	for _, entry := range s.ActivityLog[p.logSeen:] {
		channel := entry.Channel
		if channel == "" {
			channel = "-"
		}
		fmt.Fprintf(p.out, "[%s] %-8s %-9s %s\n",
			entry.Timestamp.Format("15:04:05"), entry.Category, channel, entry.Message)
	}
	p.logSeen = len(s.ActivityLog)

	for _, inc := range s.Incidents {
		prev, seen := p.statuses[inc.ID]
		switch {
		case !seen:
			fmt.Fprintf(p.out, "  %s %s\n", inc.ID, inc.Status)
		case prev != inc.Status:
			fmt.Fprintf(p.out, "  %s %s -> %s\n", inc.ID, prev, inc.Status)
		}
		p.statuses[inc.ID] = inc.Status
	}
}
