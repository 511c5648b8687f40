package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hedisam/goexec/actor"
	"github.com/hedisam/goexec/config"
	"github.com/hedisam/goexec/proc"
	"github.com/hedisam/goexec/supervised"
)

type waitFlags struct {
	direct     bool
	configPath string
	interval   time.Duration
}

type waitRequest struct {
	index   int
	command string
	reply   *actor.PID
}

type waitResult struct {
	index   int
	command string
	status  proc.ExitStatus
	took    time.Duration
	err     error
}

func newWaitCmd() *cobra.Command {
	var flags waitFlags

	cmd := &cobra.Command{
		Use:   "wait [flags] CMD...",
		Short: "Run every command with /bin/sh -c and report how each one exited",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			logger, err := cfg.NewLogger()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			var results []waitResult
			if flags.direct {
				results, err = waitDirect(cmd.Context(), logger, args)
			} else {
				results, err = waitEvented(cfg, logger, args)
			}
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().BoolVar(&flags.direct, "direct", false, "wait on each process from its own goroutine instead of an evented actor")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	cmd.Flags().DurationVar(&flags.interval, "interval", config.DefaultPollInterval, "reactor poll interval")

	return cmd
}

func loadConfig(cmd *cobra.Command, flags waitFlags) (config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		var err error
		if cfg, err = config.Load(flags.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if cmd.Flags().Changed("interval") {
		cfg.PollInterval = flags.interval
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// waitDirect blocks one goroutine per process
func waitDirect(ctx context.Context, logger *zap.Logger, commands []string) ([]waitResult, error) {
	results := make([]waitResult, len(commands))
	g, ctx := errgroup.WithContext(ctx)
	for i, command := range commands {
		i, command := i, command
		g.Go(func() error {
			results[i] = runAndWait(ctx, logger, i, command)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// waitEvented waits on every process from a single evented actor
func waitEvented(cfg config.Config, logger *zap.Logger, commands []string) ([]waitResult, error) {
	pid, err := actor.SpawnWithOptions(waiter, actor.WithReactor(), actor.WithConfig(cfg), actor.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	defer actor.Stop(pid)

	futures := make([]*actor.Future, len(commands))
	for i, command := range commands {
		futures[i] = actor.NewFuture()
		futures[i].Send(pid, waitRequest{index: i, command: command, reply: futures[i].Self()})
	}

	results := make([]waitResult, len(commands))
	for i, future := range futures {
		reply, err := future.Recv()
		if err != nil {
			results[i] = waitResult{index: i, command: commands[i], err: err}
			continue
		}
		results[i] = reply.(waitResult)
	}
	return results, nil
}

func waiter(a *actor.Actor) {
	a.Receive(func(ctx context.Context, message interface{}) (loop bool) {
		if req, ok := message.(waitRequest); ok {
			actor.Send(req.reply, runAndWait(ctx, a.Logger(), req.index, req.command))
		}
		return true
	})
}

// runAndWait suspends the calling task when ctx is evented and blocks otherwise
func runAndWait(ctx context.Context, logger *zap.Logger, index int, command string) waitResult {
	res := waitResult{index: index, command: command}
	start := time.Now()

	p := supervised.Build("/bin/sh", "-c", command).SetLogger(logger)
	if res.err = p.Start(); res.err != nil {
		return res
	}
	res.status, res.err = p.Wait(ctx)
	res.took = time.Since(start)

	logger.Debug("command done",
		zap.String("command", command),
		zap.Bool("evented", supervised.Evented(ctx)),
		zap.Stringer("status", res.status),
		zap.Duration("took", res.took),
	)
	return res
}

func report(w io.Writer, results []waitResult) error {
	failed := 0
	for _, res := range results {
		switch {
		case res.err != nil:
			failed++
			fmt.Fprintf(w, "%q\terror: %v\n", res.command, res.err)
		default:
			if !res.status.Success() {
				failed++
			}
			fmt.Fprintf(w, "%q\t%s\t%v\n", res.command, res.status, res.took.Round(time.Millisecond))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d commands failed", failed, len(results))
	}
	return nil
}
