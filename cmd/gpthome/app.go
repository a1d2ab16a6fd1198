package main

import (
	"fmt"

	"github.com/curtiv3/gpthome-refurbished/internal/config"
	"github.com/curtiv3/gpthome-refurbished/internal/echo"
	"github.com/curtiv3/gpthome-refurbished/internal/logging"
	"github.com/curtiv3/gpthome-refurbished/internal/metrics"
	"github.com/curtiv3/gpthome-refurbished/internal/perception"
	"github.com/curtiv3/gpthome-refurbished/internal/store"
	"github.com/curtiv3/gpthome-refurbished/internal/tools"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
	"github.com/curtiv3/gpthome-refurbished/internal/wake"
	"github.com/curtiv3/gpthome-refurbished/internal/weather"
)

// app is the fully wired resident.
type app struct {
	cfg     *config.Config
	store   *store.Store
	client  types.LLMClient
	mode    perception.Mode
	metrics *metrics.Collectors
	prompts *wake.Prompts
	wake    *wake.Orchestrator
	echo    *echo.Worker
}

// openStore opens the relational store without the rest of the wiring.
func openStore(cfg *config.Config) (*store.Store, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	return store.Open(cfg.DatabasePath(), cfg.Data.Driver)
}

// newApp wires every component from cfg. Close releases them.
func newApp(cfg *config.Config) (*app, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "newApp")
	defer timer.Stop()

	st, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	inner, mode, err := perception.NewClientFromConfig(cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	m := metrics.New()
	provider := cfg.LLM.Provider
	if mode == perception.ModeMock {
		provider = perception.ProviderMock
	}
	client := perception.NewTracingClient(inner, provider, m)

	registry, _, err := tools.NewSandbox(st, tools.OptionsFromConfig(cfg))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to build sandbox: %w", err)
	}
	registry.SetObserver(m)

	prompts := wake.NewPrompts(cfg.SystemPromptOverridePath(), cfg.PromptLayerPath())
	orch := wake.New(st, client, registry, weather.New(weather.OptionsFromConfig(cfg)), prompts,
		wake.OptionsFromConfig(cfg, string(mode)))
	orch.SetRecorder(m)

	var echoClient types.LLMClient
	if mode == perception.ModeLive {
		echoClient = client
	}
	worker := echo.NewWorker(st, echoClient, echo.Options{Timeout: cfg.GetLLMTimeout()})

	logging.Boot("Resident ready: mode=%s provider=%s data=%s", mode, provider, cfg.DataDir())
	return &app{
		cfg:     cfg,
		store:   st,
		client:  client,
		mode:    mode,
		metrics: m,
		prompts: prompts,
		wake:    orch,
		echo:    worker,
	}, nil
}

// Close drains the echo queue and closes the store.
func (a *app) Close() error {
	a.echo.Close()
	return a.store.Close()
}
