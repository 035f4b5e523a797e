// Command creditkit runs the monthly free-credits and quota reconciliation job.
//
//	creditkit serve     scheduler and HTTP API until SIGINT/SIGTERM
//	creditkit run       one manual run, prints the result as JSON
//	creditkit migrate   apply database migrations
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/creditkit/pkg/logger"
)

var errUsage = errors.New("usage: creditkit <serve|run|migrate> [flags]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute dispatches a subcommand and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, errUsage)
		return 2
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env-file", "", "load environment variables from this file")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	var cmd func(ctx context.Context, a *app, stdout io.Writer) error
	switch args[0] {
	case "serve":
		cmd = serve
	case "run":
		cmd = runOnce
	case "migrate":
		cmd = migrate
	default:
		fmt.Fprintln(stderr, errUsage)
		return 2
	}

	a, err := newApp(ctx, *envFile, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "creditkit: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := cmd(a.ctx(ctx), a, stdout); err != nil {
		if errors.Is(err, errRunFailed) {
			return 1
		}
		a.log.ErrorContext(ctx, "command failed", slog.String("command", args[0]), logger.Error(err))
		return 1
	}
	return 0
}
