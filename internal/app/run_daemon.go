package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dev-tams/sweepkit/internal/config"
	"github.com/dev-tams/sweepkit/internal/schedule"
)

type daemonJob struct {
	container config.ContainerConfig
	schedule  schedule.CronSpec
}

// RunDaemon polls once a minute and runs a sweep pass for every container
// whose schedule matches. Passes run sequentially, so overlapping passes
// against the same root cannot happen within one daemon.
func RunDaemon(ctx context.Context, cfg *config.Config, verbose bool, runTimeout time.Duration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	jobs := make([]daemonJob, 0, len(cfg.Containers))
	for _, ct := range cfg.Containers {
		s := strings.TrimSpace(ct.Schedule)
		if s == "" {
			if verbose {
				fmt.Printf("daemon: container=%s skipped (empty schedule)\n", ct.Name)
			}
			continue
		}

		spec, err := schedule.ParseCronSpec(s)
		if err != nil {
			return fmt.Errorf("container %s: invalid schedule %q: %w", ct.Name, s, err)
		}
		jobs = append(jobs, daemonJob{container: ct, schedule: spec})
	}

	if len(jobs) == 0 {
		return fmt.Errorf("daemon: no containers with a valid non-empty schedule")
	}

	if verbose {
		fmt.Printf("daemon: started with %d scheduled container(s)\n", len(jobs))
	}

	lastMinute := time.Time{}
	lastRunByContainer := make(map[string]time.Time, len(jobs))

	for {
		select {
		case <-ctx.Done():
			if verbose {
				fmt.Println("daemon: shutdown requested")
			}
			return nil
		default:
		}

		now := time.Now().UTC()
		currentMinute := now.Truncate(time.Minute)
		if currentMinute.Equal(lastMinute) {
			sleepUntilNextPoll(ctx, 500*time.Millisecond)
			continue
		}
		lastMinute = currentMinute

		due := make([]daemonJob, 0, len(jobs))
		for _, job := range jobs {
			if !job.schedule.Matches(currentMinute) {
				continue
			}
			if lm, ok := lastRunByContainer[job.container.Name]; ok && lm.Equal(currentMinute) {
				continue
			}
			due = append(due, job)
		}

		if len(due) == 0 {
			continue
		}

		if verbose {
			fmt.Printf("daemon: triggering %d sweep pass(es) at %s UTC\n", len(due), currentMinute.Format(time.RFC3339))
		}

		for _, job := range due {
			runCtx := ctx
			cancel := func() {}
			if runTimeout > 0 {
				runCtx, cancel = context.WithTimeout(ctx, runTimeout)
			}

			err := RunSweep(runCtx, cfg, SweepOptions{Container: job.container.Name, Verbose: verbose})
			cancel()
			if err != nil {
				if runTimeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
					if verbose {
						fmt.Printf(
							"daemon: run timeout after %s at %s UTC for container %s\n",
							runTimeout,
							currentMinute.Format(time.RFC3339),
							job.container.Name,
						)
					}
					return fmt.Errorf("daemon run timed out after %s", runTimeout)
				}
				return fmt.Errorf("daemon run: %w", err)
			}

			lastRunByContainer[job.container.Name] = currentMinute
		}
	}
}

func sleepUntilNextPoll(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
