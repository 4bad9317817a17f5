// Package di wires the infrastructure adapters into the agent controller.
package di

import (
	"fmt"

	"screen-agent/internal/application/port/input"
	"screen-agent/internal/application/port/output"
	"screen-agent/internal/infrastructure/calibration"
	"screen-agent/internal/infrastructure/config"
	"screen-agent/internal/infrastructure/env"
	"screen-agent/internal/infrastructure/hotkey"
	"screen-agent/internal/infrastructure/llm/langchain"
	"screen-agent/internal/infrastructure/llm/openaiprop"
	"screen-agent/internal/infrastructure/logger"
	"screen-agent/internal/infrastructure/session"
	"screen-agent/internal/infrastructure/target/desktop"
	"screen-agent/internal/infrastructure/target/rodtarget"
	"screen-agent/internal/infrastructure/userinteraction"
	"screen-agent/internal/usecase/agent"
	"screen-agent/internal/usecase/statemachine"
)

type Container struct {
	Driver   input.AgentDriver
	Logger   output.LoggerPort
	UI       output.UserInteractionPort
	Hotkey   *hotkey.Listener
	Settings *config.Settings

	inputDevice output.InputPort
}

type Config struct {
	SettingsPath string
	Debug        bool
}

func NewContainer(cfg Config) (*Container, error) {
	envSvc := env.NewEnvService()

	settings, err := config.Load(cfg.SettingsPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.NewZapAdapter(logger.Options{
		Name:  "agent",
		Debug: cfg.Debug || envSvc.GetBool("AGENT_DEBUG", false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	proposer, err := buildProposer(settings, envSvc, log)
	if err != nil {
		log.Close()
		return nil, err
	}

	capture, inputDevice, err := buildTarget(settings, envSvc)
	if err != nil {
		log.Close()
		return nil, err
	}

	ui := userinteraction.NewConsoleUserInteraction()

	controller := agent.NewController(agent.Deps{
		Machine:     statemachine.New(),
		Capture:     capture,
		Proposer:    proposer,
		Input:       inputDevice,
		Calibration: calibration.NewLoader(settings.Target.CalibrationPath, settings.Target.ReferencePath),
		Sessions:    session.NewFactory(settings.Target.SessionsDir),
		UI:          ui,
		Logger:      log,
		Policy:      settings.Policy(),
	})

	listener := hotkey.NewListener(log)
	listener.Start(controller.Stop)

	return &Container{
		Driver:      controller,
		Logger:      log,
		UI:          ui,
		Hotkey:      listener,
		Settings:    settings,
		inputDevice: inputDevice,
	}, nil
}

func buildProposer(settings *config.Settings, envSvc *env.EnvService, log output.LoggerPort) (output.ProposerPort, error) {
	switch settings.Proposer.Provider {
	case "openai":
		return openaiprop.NewAdapter(openaiprop.Config{
			APIKey:        envSvc.MustGet("OPENAI_API_KEY"),
			Model:         settings.Proposer.Model,
			BaseURL:       envSvc.Get("OPENAI_BASE_URL"),
			Temperature:   settings.Proposer.Temperature,
			MaxTokens:     settings.Proposer.MaxTokens,
			MinConfidence: settings.Proposer.MinConfidence,
			MaxActions:    settings.Run.MaxActionsPerIteration,
			Timeout:       settings.ProposerTimeout(),
			Logger:        log,
		}), nil
	case "langchain":
		return langchain.NewAdapter(langchain.Config{
			APIKey:        envSvc.MustGet("OPENAI_API_KEY"),
			Model:         settings.Proposer.Model,
			BaseURL:       envSvc.Get("OPENAI_BASE_URL"),
			Temperature:   settings.Proposer.Temperature,
			MaxTokens:     settings.Proposer.MaxTokens,
			MinConfidence: settings.Proposer.MinConfidence,
			MaxActions:    settings.Run.MaxActionsPerIteration,
			Timeout:       settings.ProposerTimeout(),
			Logger:        log,
		})
	default:
		return nil, fmt.Errorf("unknown proposer provider %q", settings.Proposer.Provider)
	}
}

func buildTarget(settings *config.Settings, envSvc *env.EnvService) (output.CapturePort, output.InputPort, error) {
	switch settings.Target.Backend {
	case "desktop":
		return desktop.NewCapturer(), desktop.NewInput(), nil
	case "browser":
		adapter, err := rodtarget.New(rodtarget.Config{
			URL:      envSvc.GetWithDefault("TARGET_URL", "about:blank"),
			Headless: envSvc.GetBool("TARGET_HEADLESS", false),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create browser target: %w", err)
		}
		return adapter, adapter, nil
	default:
		return nil, nil, fmt.Errorf("unknown target backend %q", settings.Target.Backend)
	}
}

func (c *Container) Close() {
	if c.Hotkey != nil {
		c.Hotkey.Stop()
	}
	if c.inputDevice != nil {
		c.inputDevice.Close()
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}
