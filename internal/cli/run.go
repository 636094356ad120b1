package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"aks/internal/cache"
	"aks/internal/config"
	"aks/internal/corpus"
	"aks/internal/llm"
	"aks/internal/prompt"
	"aks/internal/query"
	"aks/internal/selection"
	"aks/internal/transcript"
	"aks/internal/tui"

	"github.com/mattn/go-isatty"
)

type runOptions struct {
	Patterns []string
	Excludes []string
	All      bool
	Query    query.Options
	NoCache  bool
	DryRun   bool
}

type waitFunc func(ctx context.Context, label string, fn func(context.Context) (string, error)) (string, error)

// pipeline runs one ask: select, assemble, resolve, gate, dispatch, record.
type pipeline struct {
	cfg    *config.Config
	root   string
	out    io.Writer
	logger *slog.Logger

	resolver *query.Resolver
	confirm  prompt.Confirmer
	dispatch func(ctx context.Context, cfg *config.Config) (llm.Dispatcher, error)
	wait     waitFunc
	cache    *cache.Manager
	now      func() time.Time
}

func newPipeline(cfg *config.Config, out io.Writer, logger *slog.Logger) *pipeline {
	return &pipeline{
		cfg:      cfg,
		root:     ".",
		out:      out,
		logger:   logger,
		resolver: query.NewResolver(),
		confirm:  prompt.NewTerminalConfirmer(),
		dispatch: llm.New,
		wait:     terminalWait,
		now:      time.Now,
	}
}

// terminalWait shows the spinner only when stderr is a terminal.
func terminalWait(ctx context.Context, label string, fn func(context.Context) (string, error)) (string, error) {
	fd := os.Stderr.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return fn(ctx)
	}
	return tui.Wait(ctx, label, os.Stderr, fn)
}

func (p *pipeline) run(ctx context.Context, opts runOptions) error {
	files, err := p.selectFiles(opts)
	if err != nil {
		return err
	}

	body, err := p.assemble(files)
	if err != nil {
		return err
	}

	q, err := p.resolver.Resolve(opts.Query)
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "User query source: %s\n", q.Source)

	full := prompt.Build(body.Text(), q.Text)
	if err := p.checkBudget(full); err != nil {
		return err
	}

	if opts.DryRun {
		fmt.Fprintln(p.out, mutedStyle.Render("Dry run: prompt not sent."))
		return nil
	}

	d, err := p.dispatch(ctx, p.cfg)
	if err != nil {
		return err
	}

	system := p.cfg.LLM.SystemPrompt
	key := cache.Key(p.cfg.LLM.Provider, d.Model(), system, full)

	var (
		response string
		cached   bool
	)
	if e, ok := p.cache.Lookup(ctx, key); ok {
		response, cached = e.Response, true
		fmt.Fprintf(p.out, "Using cached response from %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"))
	} else {
		fmt.Fprintln(p.out, "Preparing API request...")
		start := p.now()
		response, err = p.wait(ctx, d.Name(), func(ctx context.Context) (string, error) {
			return d.Complete(ctx, llm.Request{System: system, Prompt: full})
		})
		if err != nil {
			fmt.Fprintln(p.out, "API call failed")
			return fmt.Errorf("error calling %s: %w", d.Name(), err)
		}
		p.logger.Debug("response received", "provider", d.Name(), "model", d.Model(), "elapsed", time.Since(start).Round(time.Millisecond))

		p.cache.Save(ctx, key, cache.Entry{
			Provider:  p.cfg.LLM.Provider,
			Model:     d.Model(),
			Response:  response,
			CreatedAt: p.now(),
		})
	}

	rec := transcript.Record{
		Date:     p.now(),
		Provider: d.Name(),
		Model:    d.Model(),
		Source:   q.Source,
		Query:    q.Text,
		Response: response,
		Cached:   cached,
	}
	if err := transcript.Append(p.cfg.Output.ResponseFile, rec); err != nil {
		return err
	}

	fmt.Fprintln(p.out, successStyle.Render("Response appended to "+p.cfg.Output.ResponseFile))
	return nil
}

func (p *pipeline) selectFiles(opts runOptions) ([]selection.FileSpec, error) {
	c := selection.NewCollector(p.root, p.cfg.Selection, p.logger)
	res, err := c.Collect(selection.Request{
		All:      opts.All,
		Patterns: opts.Patterns,
		Excludes: opts.Excludes,
	})
	if res != nil {
		p.reportSelection(res, opts)
	}
	if err != nil {
		return nil, err
	}
	return res.Files, nil
}

func (p *pipeline) reportSelection(res *selection.Result, opts runOptions) {
	switch res.Mode {
	case selection.ModeAll:
		fmt.Fprintf(p.out, "Using %d all files recursively (--all flag)\n", res.Matched)
	case selection.ModePatterns:
		fmt.Fprintf(p.out, "Using %d expanded files from patterns: %s\n", res.Matched, strings.Join(opts.Patterns, " "))
	default:
		groups := make([]string, 0, len(res.Groups))
		for _, g := range res.Groups {
			groups = append(groups, fmt.Sprintf("%d %s", g.Count, g.Extension))
		}
		fmt.Fprintf(p.out, "Found %d files via default glob: %s\n", res.Matched, strings.Join(groups, ", "))
	}

	if res.Excluded > 0 {
		fmt.Fprintf(p.out, "Excluded %d files matching patterns: %s\n", res.Excluded, strings.Join(res.Excludes, " "))
	}
}

func (p *pipeline) assemble(files []selection.FileSpec) (*corpus.Corpus, error) {
	body, err := corpus.NewAssembler(p.logger).Assemble(files)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(p.out, "Files included (%d total):\n", len(body.Entries))
	for _, e := range body.Entries {
		fmt.Fprintf(p.out, " - %s: %s chars (~%s tokens)\n", e.Path, prettyNumber(e.Chars), prettyNumber(e.Tokens))
	}
	if n := len(body.Skipped); n > 0 {
		fmt.Fprintln(p.out, warnStyle.Render(fmt.Sprintf("Skipped %d unreadable files", n)))
	}
	return body, nil
}

func (p *pipeline) checkBudget(full string) error {
	checker := prompt.Checker{
		Limit:       p.cfg.Budget.TokenLimit,
		AutoConfirm: p.cfg.Budget.AutoConfirm,
		Confirm:     p.confirm,
	}

	d, err := checker.Check(full)
	fmt.Fprintf(p.out, "Full prompt length: %s chars (~%s tokens)\n", prettyNumber(d.Chars), prettyNumber(d.Tokens))
	if err != nil {
		return err
	}

	if d.OverLimit() {
		p.logger.Warn("prompt exceeds token limit", "tokens", d.Tokens, "limit", d.Limit, "state", d.State.String())
	}
	if !d.Proceed() {
		return errors.New("budget check did not allow the prompt")
	}
	return nil
}
