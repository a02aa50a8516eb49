package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/internal/config"
	"github.com/MrEthical07/goGuard/store/sqlstore"
	"github.com/MrEthical07/goGuard/strength"
)

func writeStrength(w io.Writer, r goGuard.StrengthReport) {
	fmt.Fprintf(w, "score: %d/%d\nband: %s\nindicator: %s\n", r.Score, strength.MaxScore, r.Band, r.Indicator)
}

// strengthCmd scores its argument, or a hidden line from stdin.
func strengthCmd(w io.Writer, args []string) error {
	var pw string
	switch len(args) {
	case 0:
		var err error
		if pw, err = readSecret("password: "); err != nil {
			return err
		}
	case 1:
		pw = args[0]
	default:
		return errUsage
	}
	r := strength.Evaluate(pw)
	writeStrength(w, goGuard.StrengthReport{Result: r, Indicator: strength.IndicatorFor(r)})
	return nil
}

// lintCmd prints configuration findings and fails on high severity ones.
func lintCmd(w io.Writer, cfg config.File) error {
	engineCfg, err := cfg.Engine()
	if err != nil {
		return err
	}
	res := engineCfg.Lint()
	if len(res) == 0 {
		fmt.Fprintln(w, "no findings")
		return nil
	}
	for _, f := range res {
		fmt.Fprintf(w, "%-5s %-28s %s\n", f.Severity, f.Code, f.Message)
	}
	return res.AsError(goGuard.LintHigh)
}

var errNoDatabase = errors.New("database dsn not configured")

// migrateCmd applies pending schema migrations and prints the version.
func migrateCmd(ctx context.Context, w io.Writer, cfg config.File) error {
	if cfg.Database.DSN == "" {
		return errNoDatabase
	}
	dialect, err := sqlstore.ParseDialect(cfg.Database.Dialect)
	if err != nil {
		return err
	}
	store, err := sqlstore.Open(ctx, dialect, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	version, err := sqlstore.MigrationVersion(ctx, store.DB(), dialect)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "schema version %d\n", version)
	return nil
}

// hashCmd prints a stored-credential encoding for a password read from
// stdin, for seeding accounts by hand.
func hashCmd(a *app, w io.Writer) error {
	pw, err := readSecret("password: ")
	if err != nil {
		return err
	}
	encoded, err := a.engine.HashPassword(pw)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, encoded)
	return nil
}

// unlockCmd clears the lockout state of username.
func unlockCmd(ctx context.Context, a *app, w io.Writer, username string) error {
	locked, until, err := a.engine.IsAccountLocked(ctx, username)
	if err != nil {
		return err
	}
	failures, err := a.engine.FailedAttempts(ctx, username)
	if err != nil {
		return err
	}
	if err := a.engine.UnlockAccount(ctx, username); err != nil {
		return err
	}
	if locked {
		fmt.Fprintf(w, "%s unlocked after %d failures (lock ran until %s)\n", username, failures, until.Format("15:04:05"))
		return nil
	}
	fmt.Fprintf(w, "%s was not locked; %d failures cleared\n", username, failures)
	return nil
}
