package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/opencea/cea/internal/agentloop"
	"github.com/opencea/cea/internal/config"
	"github.com/opencea/cea/internal/cost"
	"github.com/opencea/cea/internal/fsafety"
	"github.com/opencea/cea/internal/history"
	"github.com/opencea/cea/internal/ignore"
	"github.com/opencea/cea/internal/provider"
	"github.com/opencea/cea/internal/session"
	"github.com/opencea/cea/internal/skillsdir"
	"github.com/opencea/cea/internal/todo"
	"github.com/opencea/cea/internal/tools"
)

const systemPrompt = `You are an autonomous coding agent. Use the available tools to read, ` +
	`search, and edit files, run shell commands, and track outstanding work as a todo list. ` +
	`Keep going until the task is complete or you are blocked.`

const thinkingBudgetTokens = 10000

func runHeadless(ctx context.Context, opts options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		// spec.md §4.8: SIGINT exits immediately, no graceful teardown.
		os.Exit(0)
	}()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cea: load config: %w", err)
	}
	if opts.model != "" {
		cfg.Model = opts.model
	}
	if opts.maxCostUSD > 0 {
		cfg.MaxCostUSD = opts.maxCostUSD
	}
	if opts.maxSteps > 0 {
		cfg.MaxToolLoopSteps = opts.maxSteps
	}
	if opts.restricted {
		cfg.Restricted = true
	}

	sessionID := opts.resume
	if sessionID == "" {
		sessionID = newSessionID()
	}

	tw := newTrajectoryWriter(os.Stdout, sessionID, cfg.Model)
	if err := tw.writeUser(opts.prompt); err != nil {
		return fmt.Errorf("cea: write trajectory: %w", err)
	}

	start := time.Now()

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("cea: working directory: %w", err)
	}
	ceaDir := filepath.Join(workDir, ".cea")

	engine := ignore.New()
	reader := fsafety.New(engine)
	store := todo.New(workDir, sessionID)
	resolver := skillsdir.New(cfg.SkillsDir)
	reg := tools.BuildDefault(workDir, engine, reader, store, resolver, cfg.Restricted)
	h := history.New()

	costCfg := cost.Config{
		MaxCostUSD:     cfg.MaxCostUSD,
		WarnAtFraction: cfg.CostWarnAtFraction,
		SnapshotPath:   cost.SnapshotPath(ceaDir, sessionID),
	}

	var sessStore *session.Store
	if opts.resume != "" || opts.persist {
		sessStore, err = session.Open(config.SessionsDBPath(ceaDir))
		if err != nil {
			return fmt.Errorf("cea: open session store: %w", err)
		}
		defer sessStore.Close()
	}

	var tracker *cost.Tracker
	if opts.resume != "" && sessStore != nil {
		snap, found, err := sessStore.Load(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("cea: load session %s: %w", sessionID, err)
		}
		if !found {
			return fmt.Errorf("cea: session %s not found", sessionID)
		}
		h.Restore(snap.Messages)
		tracker = cost.RestoreTracker(costCfg, snap.Cost)
	} else {
		tracker, err = cost.LoadTracker(costCfg)
		if err != nil {
			return fmt.Errorf("cea: load cost snapshot: %w", err)
		}
	}

	prov := provider.NewAnthropicProvider("", 0)

	driver := agentloop.New(prov, reg, h, store, cfg.Model, systemPrompt)
	driver.Cost = tracker
	driver.MaxSteps = cfg.MaxToolLoopSteps
	driver.MaxTodoLoops = cfg.MaxTodoContinuationLoops
	driver.ThinkingOn = opts.think
	if opts.think {
		driver.ThinkingBudgetTokens = thinkingBudgetTokens
	}

	emit := func(ev provider.Event) {
		if err := tw.writeEvent(ev); err != nil {
			fmt.Fprintf(os.Stderr, "[headless] trajectory write failed: %v\n", err)
		}
		if ev.Kind == provider.EventFinishStep && sessStore != nil {
			if err := sessStore.Save(ctx, sessionID, h.ToModelMessages(), tracker.Snapshot()); err != nil {
				fmt.Fprintf(os.Stderr, "[headless] session save failed: %v\n", err)
			}
		}
	}

	runErr := driver.Run(ctx, opts.prompt, emit)

	if err := tracker.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "[headless] cost snapshot save failed: %v\n", err)
	}
	if sessStore != nil {
		if err := sessStore.Save(ctx, sessionID, h.ToModelMessages(), tracker.Snapshot()); err != nil {
			fmt.Fprintf(os.Stderr, "[headless] session save failed: %v\n", err)
		}
	}

	fmt.Fprintf(os.Stderr, "[headless] Completed in %.1fs\n", time.Since(start).Seconds())

	if runErr != nil {
		if werr := tw.writeError(runErr.Error()); werr != nil {
			fmt.Fprintf(os.Stderr, "[headless] trajectory write failed: %v\n", werr)
		}
		return runErr
	}
	return nil
}
