package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
)

// console drives one Session from typed commands. It is the presentation
// layer: every decision comes from the engine and every message shown for
// a failure comes from goGuard.UserMessage.
type console struct {
	engine *goGuard.Engine
	sess   *goGuard.Session
	in     prompter
	out    io.Writer
}

func newConsole(engine *goGuard.Engine, in prompter, out io.Writer) *console {
	return &console{
		engine: engine,
		sess:   goGuard.NewSession(),
		in:     in,
		out:    out,
	}
}

const consoleHelp = `commands:
  login              authenticate
  logout             end the current login
  refresh            extend the current login
  resume <token>     continue a persisted login
  whoami             show the current user
  profile            show account details
  passwd             change password
  register           create an account
  strength           score a password
  help               this text
  quit               exit`

// Run reads commands until quit or end of input. The session ends on
// return.
func (c *console) Run(ctx context.Context) error {
	defer c.sess.End()

	fmt.Fprintln(c.out, "goguard console. Type help for commands.")
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := c.in.Prompt(c.promptLabel())
		if errors.Is(err, errAborted) {
			fmt.Fprintln(c.out)
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := c.exec(ctx, fields[0], fields[1:]); err != nil {
			if errors.Is(err, errAborted) {
				fmt.Fprintln(c.out)
				return nil
			}
			return err
		}
	}
}

func (c *console) promptLabel() string {
	if user, ok := c.sess.CurrentUser(); ok {
		return user + "> "
	}
	return "goguard> "
}

func (c *console) exec(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help", "?":
		fmt.Fprintln(c.out, consoleHelp)
		return nil
	case "login":
		return c.login(ctx)
	case "logout":
		c.report(c.engine.Logout(ctx, c.sess), "Logged out")
		return nil
	case "refresh":
		c.refresh(ctx)
		return nil
	case "resume":
		if len(args) != 1 {
			fmt.Fprintln(c.out, "usage: resume <token>")
			return nil
		}
		c.report(c.engine.Resume(ctx, c.sess, args[0]), "Session resumed")
		return nil
	case "whoami":
		c.whoami()
		return nil
	case "profile":
		c.profile(ctx)
		return nil
	case "passwd":
		return c.changePassword(ctx)
	case "register":
		return c.register(ctx)
	case "strength":
		return c.strength()
	default:
		fmt.Fprintf(c.out, "unknown command %q\n", cmd)
		return nil
	}
}

func (c *console) report(err error, success string) {
	if err != nil {
		fmt.Fprintln(c.out, goGuard.UserMessage(err))
		return
	}
	fmt.Fprintln(c.out, success)
}

func (c *console) login(ctx context.Context) error {
	if c.sess.IsAuthenticated() {
		fmt.Fprintln(c.out, goGuard.UserMessage(goGuard.ErrAlreadyAuthenticated))
		return nil
	}
	username, err := c.in.Prompt("username: ")
	if err != nil {
		return err
	}
	pw, err := c.in.Password("password: ")
	if err != nil {
		return err
	}

	res, err := c.engine.AttemptLogin(ctx, c.sess, strings.TrimSpace(username), pw)
	if err != nil {
		fmt.Fprintln(c.out, goGuard.UserMessage(err))
		return nil
	}
	user, _ := c.sess.CurrentUser()
	fmt.Fprintf(c.out, "Welcome, %s\n", user)
	if res.Token != "" {
		fmt.Fprintf(c.out, "token: %s\nexpires: %s\n", res.Token, res.ExpiresAt.Local().Format(time.RFC3339))
	}
	return nil
}

func (c *console) refresh(ctx context.Context) {
	if err := c.engine.Refresh(ctx, c.sess); err != nil {
		fmt.Fprintln(c.out, goGuard.UserMessage(err))
		return
	}
	if exp := c.sess.ExpiresAt(); !exp.IsZero() {
		fmt.Fprintf(c.out, "Session extended until %s\n", exp.Local().Format(time.RFC3339))
		return
	}
	fmt.Fprintln(c.out, "Session refreshed")
}

func (c *console) whoami() {
	user, ok := c.sess.CurrentUser()
	if !ok {
		fmt.Fprintln(c.out, "not logged in")
		return
	}
	fmt.Fprintf(c.out, "%s (since %s)\n", user, c.sess.AuthenticatedAt().Local().Format(time.Kitchen))
}

func (c *console) profile(ctx context.Context) {
	p, err := c.engine.Profile(ctx, c.sess)
	if err != nil {
		fmt.Fprintln(c.out, goGuard.UserMessage(err))
		return
	}
	fmt.Fprintf(c.out, "username:    %s\n", p.Username)
	fmt.Fprintf(c.out, "email:       %s\n", p.Email)
	fmt.Fprintf(c.out, "role:        %s\n", p.Role)
	fmt.Fprintf(c.out, "member for:  %d days\n", p.MemberDays)
	if p.LastLogin.IsZero() {
		fmt.Fprintln(c.out, "last login:  never")
	} else {
		fmt.Fprintf(c.out, "last login:  %s\n", p.LastLogin.Local().Format(time.RFC1123))
	}
	if p.Sessions > 0 {
		fmt.Fprintf(c.out, "sessions:    %d\n", p.Sessions)
	}
}

func (c *console) changePassword(ctx context.Context) error {
	if !c.sess.IsAuthenticated() {
		fmt.Fprintln(c.out, goGuard.UserMessage(goGuard.ErrUnauthenticated))
		return nil
	}
	current, err := c.in.Password("current password: ")
	if err != nil {
		return err
	}
	next, err := c.in.Password("new password: ")
	if err != nil {
		return err
	}
	confirm, err := c.in.Password("confirm new password: ")
	if err != nil {
		return err
	}

	res, _ := c.engine.ChangePassword(ctx, c.sess, current, next, confirm)
	fmt.Fprintln(c.out, res.Message)
	return nil
}

func (c *console) register(ctx context.Context) error {
	username, err := c.in.Prompt("username: ")
	if err != nil {
		return err
	}
	email, err := c.in.Prompt("email: ")
	if err != nil {
		return err
	}
	pw, err := c.in.Password("password: ")
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "strength: %s\n", c.engine.ScorePasswordStrength(pw).Band)
	confirm, err := c.in.Password("confirm password: ")
	if err != nil {
		return err
	}

	res, _ := c.engine.RegisterAccount(ctx, goGuard.RegisterRequest{
		Username:        strings.TrimSpace(username),
		Email:           strings.TrimSpace(email),
		Password:        pw,
		ConfirmPassword: confirm,
	})
	fmt.Fprintln(c.out, res.Message)
	return nil
}

func (c *console) strength() error {
	pw, err := c.in.Password("password: ")
	if err != nil {
		return err
	}
	writeStrength(c.out, c.engine.ScorePasswordStrength(pw))
	return nil
}
