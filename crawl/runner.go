package crawl

import (
	"context"
	"fmt"

	"github.com/fwojciec/sitescan"
)

// Runner executes commands from a supervisor, one crawl at a time.
type Runner struct {
	Registry  sitescan.RegistryService
	Publisher sitescan.EventPublisher

	// NewSession returns a fresh Session for each StartCommand.
	NewSession func() *Session

	// ReconcileOnStart marks crawls left pending or scanning as errored
	// before the first command is read. Set it only when this runner is the
	// sole process crawling against the registry.
	ReconcileOnStart bool
}

// Run consumes commands until the channel is closed or ctx is done.
func (r *Runner) Run(ctx context.Context, commands <-chan sitescan.Command) error {
	if r.ReconcileOnStart {
		n, err := r.Registry.ReconcileStale(ctx)
		if err != nil {
			return fmt.Errorf("reconcile stale crawls: %w", err)
		}
		if n > 0 {
			r.publish(ctx, sitescan.LogEvent{Level: sitescan.LogWarn, Message: fmt.Sprintf("marked %d interrupted crawls as errored", n)})
		}
	}

	var (
		stop context.CancelFunc
		done chan struct{}
	)

	for {
		select {
		case <-ctx.Done():
			if stop != nil {
				stop()
				<-done
			}
			return nil

		case <-done:
			stop()
			stop, done = nil, nil

		case cmd, ok := <-commands:
			if !ok {
				if done != nil {
					<-done
					stop()
				}
				return nil
			}

			switch cmd := cmd.(type) {
			case sitescan.StartCommand:
				if done != nil {
					r.publish(ctx, sitescan.ErrorEvent{Message: fmt.Sprintf("crawl already running; ignoring start of %s", cmd.SeedURL)})
					continue
				}
				var sessionCtx context.Context
				sessionCtx, stop = context.WithCancel(ctx)
				done = make(chan struct{})
				session := r.NewSession()
				go func(done chan struct{}) {
					defer close(done)
					_ = session.Start(sessionCtx, cmd)
				}(done)

			case sitescan.StopCommand:
				if stop == nil {
					r.publish(ctx, sitescan.LogEvent{Level: sitescan.LogInfo, Message: "no crawl running"})
					continue
				}
				stop()
			}
		}
	}
}

func (r *Runner) publish(ctx context.Context, evt sitescan.Event) {
	if r.Publisher != nil {
		r.Publisher.Publish(ctx, evt)
	}
}
