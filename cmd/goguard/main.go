// Command goguard is an operator console for the goGuard engine.
//
//	goguard [-config goguard.toml] [command] [args]
//
// Commands: repl (default), register, strength, hash, unlock, migrate, lint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/goGuard/internal/config"
	"github.com/MrEthical07/goGuard/internal/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("goguard", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("GOGUARD_CONFIG"), "path to a TOML config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "goguard: %v\n", err)
		return 1
	}
	log, err := logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "goguard: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, rest := "repl", fs.Args()
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}

	if err := dispatch(ctx, cfg, log, cmd, rest); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		log.Error("command failed", "command", cmd, "error", err)
		return 1
	}
	return 0
}

var errUsage = errors.New("usage: goguard [-config file] [repl|register|strength|hash|unlock <username>|migrate|lint]")

func dispatch(ctx context.Context, cfg config.File, log *logger.Logger, cmd string, args []string) error {
	switch cmd {
	case "strength":
		return strengthCmd(os.Stdout, args)
	case "lint":
		return lintCmd(os.Stdout, cfg)
	case "migrate":
		return migrateCmd(ctx, os.Stdout, cfg)
	case "repl", "register", "hash", "unlock":
	default:
		return errUsage
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	switch cmd {
	case "register":
		p := newPrompter()
		defer p.Close()
		return newConsole(a.engine, p, os.Stdout).register(ctx)
	case "hash":
		return hashCmd(a, os.Stdout)
	case "unlock":
		if len(args) != 1 {
			return errUsage
		}
		return unlockCmd(ctx, a, os.Stdout, args[0])
	default:
		p := newPrompter()
		defer p.Close()
		return newConsole(a.engine, p, os.Stdout).Run(ctx)
	}
}
