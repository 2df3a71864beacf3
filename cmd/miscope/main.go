package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/g960059/miscope/internal/breakpoint"
	"github.com/g960059/miscope/internal/config"
	"github.com/g960059/miscope/internal/db"
	"github.com/g960059/miscope/internal/frontend"
	"github.com/g960059/miscope/internal/mi"
	"github.com/g960059/miscope/internal/procsignal"
	"github.com/g960059/miscope/internal/session"
	"github.com/g960059/miscope/internal/thread"
	"github.com/g960059/miscope/internal/transcript"
)

type options struct {
	transcript    string
	state         string
	save          bool
	dirty         bool
	listProfiles  bool
	deleteProfile bool
}

func main() {
	cfg, opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		fatal(err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logErr("close db", err)
		}
	}()
	if err := db.ApplyMigrations(ctx, store.DB()); err != nil {
		fatal(err)
	}

	in := io.Reader(os.Stdin)
	if opts.transcript != "-" {
		f, err := os.Open(opts.transcript)
		if err != nil {
			fatal(err)
		}
		defer f.Close()
		in = f
	}
	if err := run(ctx, store, cfg, opts, in, os.Stdout, os.Stderr); err != nil {
		fatal(err)
	}
}

func parseFlags(args []string) (config.Config, options, error) {
	cfg := config.DefaultConfig()
	var opts options
	fs := flag.NewFlagSet("miscope", flag.ContinueOnError)
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite path for saved breakpoints")
	fs.StringVar(&cfg.Profile, "profile", cfg.Profile, "breakpoint profile to load and save")
	fs.StringVar(&opts.transcript, "transcript", "-", "JSON-lines MI transcript to replay, - for stdin")
	fs.StringVar(&opts.state, "state", "debug", "debug state seen by the front-end: inactive, busy, ready, debug or hanging")
	fs.BoolVar(&opts.save, "save", false, "save breakpoints to the profile after replay")
	fs.BoolVar(&opts.dirty, "dirty", false, "print view refresh requests")
	fs.BoolVar(&opts.listProfiles, "list-profiles", false, "list saved profiles and exit")
	fs.BoolVar(&opts.deleteProfile, "delete-profile", false, "delete the profile and exit")
	fs.BoolVar(&cfg.Policies.KeepExecPoint, "keep-exec-point", cfg.Policies.KeepExecPoint, "keep execution markers while threads run")
	fs.BoolVar(&cfg.Policies.SelectOnRunning, "select-on-running", cfg.Policies.SelectOnRunning, "select a stopped thread when the selected one resumes")
	fs.BoolVar(&cfg.Policies.SelectOnStopped, "select-on-stopped", cfg.Policies.SelectOnStopped, "select the first thread that stops")
	fs.BoolVar(&cfg.Policies.SelectOnExited, "select-on-exited", cfg.Policies.SelectOnExited, "select a stopped thread when the selected one exits")
	fs.BoolVar(&cfg.Policies.SelectFollow, "select-follow", cfg.Policies.SelectFollow, "follow the backend's current thread")
	fs.BoolVar(&cfg.Policies.TerminalAutoShow, "terminal-auto-show", cfg.Policies.TerminalAutoShow, "show the program terminal when the first thread starts")
	fs.BoolVar(&cfg.Policies.TerminalAutoHide, "terminal-auto-hide", cfg.Policies.TerminalAutoHide, "hide the program terminal when the last thread exits")
	fs.BoolVar(&cfg.Policies.TerminalShowOnError, "terminal-show-on-error", cfg.Policies.TerminalShowOnError, "show the program terminal when a thread group exits with a code")
	fs.BoolVar(&cfg.Policies.OpenPanelOnStart, "open-panel-on-start", cfg.Policies.OpenPanelOnStart, "open the debug panel when the first thread starts")
	fs.BoolVar(&cfg.Policies.AsyncBreakBugs, "async-break-bugs", cfg.Policies.AsyncBreakBugs, "refresh breakpoints after async notifications")
	if err := fs.Parse(args); err != nil {
		return cfg, opts, err
	}
	return cfg, opts, nil
}

func run(ctx context.Context, store *db.Store, cfg config.Config, opts options, in io.Reader, stdout, stderr io.Writer) error {
	switch {
	case opts.listProfiles:
		return listProfiles(ctx, store, stdout)
	case opts.deleteProfile:
		if err := store.DeleteProfile(ctx, cfg.Profile); err != nil {
			return fmt.Errorf("delete profile %s: %w", cfg.Profile, err)
		}
		_, _ = fmt.Fprintf(stdout, "deleted %s\n", cfg.Profile)
		return nil
	}

	state, err := parseState(opts.state)
	if err != nil {
		return err
	}
	out := newPrinter(stdout, state, opts.dirty)
	sctx := session.New(cfg.Policies, out, out, out, out, stderr)
	breaks := breakpoint.NewManager(sctx)
	threads := thread.NewManager(sctx, breaks, procsignal.Process{})
	fe := frontend.New(sctx, breaks, threads)

	sections, err := store.LoadBreakpoints(ctx, cfg.Profile)
	switch {
	case errors.Is(err, db.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load profile %s: %w", cfg.Profile, err)
	default:
		_ = fe.Do(func(b *breakpoint.Manager, _ *thread.Manager) error {
			out.printf("loaded %d breakpoints from %s", b.Load(sections), cfg.Profile)
			return nil
		})
	}

	fe.Start()
	n, replayErr := replay(ctx, fe, in)
	out.printf("replayed %d records", n)
	_ = fe.Do(func(b *breakpoint.Manager, t *thread.Manager) error {
		out.mu.Lock()
		defer out.mu.Unlock()
		printSummary(out.w, b.Sorted(breakpoint.OrderID), t.Sorted(thread.OrderID))
		return nil
	})
	fe.Stop()
	if replayErr != nil {
		return replayErr
	}

	if opts.save {
		var saved int
		_ = fe.Do(func(b *breakpoint.Manager, _ *thread.Manager) error {
			sections = b.Save()
			saved = len(sections)
			return nil
		})
		if err := store.SaveBreakpoints(ctx, cfg.Profile, sections); err != nil {
			return fmt.Errorf("save profile %s: %w", cfg.Profile, err)
		}
		out.printf("saved %d breakpoints to %s", saved, cfg.Profile)
	}
	return nil
}

// replay feeds the transcript records to the front-end in order. Reading runs
// ahead of dispatch by a bounded buffer.
func replay(ctx context.Context, fe *frontend.Frontend, in io.Reader) (int, error) {
	records := make(chan mi.Message, 64)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(records)
		r := transcript.NewReader(in)
		for {
			msg, err := r.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case records <- msg:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})
	count := 0
	g.Go(func() error {
		for msg := range records {
			fe.Dispatch(msg)
			count++
		}
		return nil
	})
	err := g.Wait()
	return count, err
}

func listProfiles(ctx context.Context, store *db.Store, w io.Writer) error {
	profiles, err := store.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}
	for _, p := range profiles {
		_, _ = fmt.Fprintf(w, "%-24s %3d  %s\n", p.Name, p.Sections, p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func logErr(scope string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "miscope: %s: %v\n", scope, err)
}

func fatal(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "miscope: %v\n", err)
	os.Exit(1)
}
