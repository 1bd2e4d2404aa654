package app

import (
	"context"
	"fmt"
	"time"

	"github.com/dev-tams/sweepkit/internal/config"
	"github.com/dev-tams/sweepkit/internal/notify"
	"github.com/dev-tams/sweepkit/internal/storage"
	"github.com/dev-tams/sweepkit/internal/sweep"
)

const notificationTimeout = 5 * time.Second

type SweepResult struct {
	Container string
	Storage   string
	Status    string
	Stats     sweep.Stats
	Duration  time.Duration
	Err       error
}

// SweepOptions carries the per-invocation flags; per-container behavior comes
// from the config.
type SweepOptions struct {
	// Container restricts the run to one configured container by name.
	Container string
	DryRun    bool
	Verbose   bool
}

func RunSweep(ctx context.Context, cfg *config.Config, opts SweepOptions) error {
	_, err := RunSweepWithResults(ctx, cfg, opts)
	return err
}

// RunSweepWithResults runs one pass per configured container. The retention
// threshold is computed once per container pass and stays fixed for the whole
// pass. A failing pass aborts the run; completed deletions stand and the next
// scheduled run reconciles the remainder.
func RunSweepWithResults(ctx context.Context, cfg *config.Config, opts SweepOptions) ([]SweepResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	containers, err := selectContainers(cfg, opts.Container)
	if err != nil {
		return nil, err
	}

	usedStorage := make(map[string]struct{}, len(containers))
	for _, ct := range containers {
		usedStorage[ct.Storage] = struct{}{}
	}

	stores, err := storage.FromConfigByNames(ctx, cfg, usedStorage)
	if err != nil {
		return nil, err
	}

	dispatcher, err := notify.NewDispatcher(cfg.Notifications)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, 0, len(containers))

	for _, ct := range containers {
		started := time.Now().UTC()

		st, ok := stores[ct.Storage]
		if !ok {
			res := SweepResult{
				Container: ct.Name,
				Status:    notify.StatusFailure,
				Duration:  time.Since(started),
				Err:       fmt.Errorf("container %s: storage %q not found", ct.Name, ct.Storage),
			}
			results = append(results, res)
			notifyResult(ctx, dispatcher, res, opts.Verbose)
			return results, res.Err
		}

		sweepOpts := sweep.Options{
			Root:      ct.Root,
			Delimiter: storage.Delimiter,
			Policy:    sweep.Policy(ct.Policy),
			DryRun:    opts.DryRun,
			Verbose:   opts.Verbose,
		}
		if ct.Policy == config.PolicyFreshness {
			days := ct.RetentionDays
			if days <= 0 {
				days = config.DefaultRetentionDays
			}
			sweepOpts.Threshold = started.AddDate(0, 0, -days)
		}

		if opts.Verbose {
			fmt.Printf(
				"sweep: container=%s storage=%s root=%q policy=%s dry_run=%v\n",
				ct.Name, st.Name(), ct.Root, ct.Policy, opts.DryRun,
			)
		}

		stats, err := sweep.RunPass(ctx, st, sweepOpts)
		res := SweepResult{
			Container: ct.Name,
			Storage:   st.Name(),
			Stats:     stats,
			Duration:  time.Since(started),
		}
		if err != nil {
			res.Status = notify.StatusFailure
			res.Err = fmt.Errorf("sweep failed for %s: %w", ct.Name, err)
			results = append(results, res)
			notifyResult(ctx, dispatcher, res, opts.Verbose)
			return results, res.Err
		}

		res.Status = notify.StatusSuccess
		results = append(results, res)

		fmt.Printf(
			"sweep OK: container=%s visited=%d pruned=%d placeholders_deleted=%d duration=%s\n",
			ct.Name,
			stats.PrefixesVisited,
			stats.ObjectsPruned,
			stats.PlaceholdersDeleted,
			res.Duration.Round(time.Millisecond),
		)
		notifyResult(ctx, dispatcher, res, opts.Verbose)
	}

	return results, nil
}

func selectContainers(cfg *config.Config, name string) ([]config.ContainerConfig, error) {
	if name == "" {
		return cfg.Containers, nil
	}
	for _, ct := range cfg.Containers {
		if ct.Name == name {
			return []config.ContainerConfig{ct}, nil
		}
	}
	return nil, fmt.Errorf("container %q not found in config", name)
}

func notifyResult(ctx context.Context, dispatcher *notify.Dispatcher, res SweepResult, verbose bool) {
	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}

	event := notify.Event{
		Container:           res.Container,
		Storage:             res.Storage,
		Status:              res.Status,
		PrefixesVisited:     res.Stats.PrefixesVisited,
		ObjectsPruned:       res.Stats.ObjectsPruned,
		PlaceholdersDeleted: res.Stats.PlaceholdersDeleted,
		Duration:            res.Duration.Round(time.Millisecond).String(),
		Error:               errMsg,
	}

	notifyCtx, cancel := notificationContext(ctx)
	defer cancel()

	if err := dispatcher.Notify(notifyCtx, event); err != nil && verbose {
		fmt.Printf("notification failed: container=%s status=%s err=%v\n", res.Container, res.Status, err)
	}
}

func notificationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), notificationTimeout)
	}
	return context.WithTimeout(context.WithoutCancel(ctx), notificationTimeout)
}
