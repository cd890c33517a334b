package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"artifact-cache/internal/cache"
	"artifact-cache/internal/common/errors"
	"artifact-cache/internal/common/logging"
	"artifact-cache/internal/config"
)

const usage = `usage: artifact-cache [-category NAME] <command> NAME [VALUE|-]

commands:
  get NAME          write the stored bytes to stdout
  set NAME VALUE    store VALUE, or stdin when VALUE is "-"
  delete NAME       remove the entry
  contains NAME     print true or false
`

func main() {
	// .env is optional
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "artifact-cache: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	flags := flag.NewFlagSet("artifact-cache", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	category := flags.String("category", "default", "cache category")
	if err := flags.Parse(args); err != nil {
		return errors.ValidationError(err.Error() + "\n" + usage)
	}

	rest := flags.Args()
	if len(rest) < 2 {
		return errors.ValidationError("missing command or name\n" + usage)
	}
	command, name := rest[0], rest[1]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, logCloser, err := logging.InitGlobalLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return err
	}
	// flushes buffered entries, then releases LOG_FILE
	defer logCloser.Close()

	provider, err := cache.Open(ctx, cfg.Cache, cache.WithLogger(logger))
	if err != nil {
		return err
	}
	defer provider.Close()

	c, err := provider.Category(*category)
	if err != nil {
		return err
	}

	switch command {
	case "get":
		data, err := cache.GetAs[[]byte](ctx, c, name)
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err

	case "set":
		if len(rest) < 3 {
			return errors.ValidationError("set needs a value\n" + usage)
		}
		data := []byte(rest[2])
		if rest[2] == "-" {
			if data, err = io.ReadAll(stdin); err != nil {
				return errors.InternalError("failed to read stdin", err)
			}
		}
		return c.Set(ctx, name, data)

	case "delete":
		return c.Delete(ctx, name)

	case "contains":
		ok, err := c.Contains(ctx, name)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, ok)
		return err

	default:
		return errors.ValidationError(fmt.Sprintf("unknown command %q\n%s", command, usage))
	}
}
