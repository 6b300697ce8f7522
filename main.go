package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	accountx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/account"
	draftx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/draft"
	llmx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/llm"
	promptx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/prompt"
	segmentx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/segment"
	strategyx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/strategy"
	tacticianx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/tactician"
	toolx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/tool"
	configx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/pkg/config"
	_ "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/pkg/openrouter"
	qstashx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/pkg/qstash"
	serverx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/server"
)

// AppConfig carries the few root-level settings that belong to no package.
type AppConfig struct {
	// FixtureDir overrides the embedded account fixtures with a local
	// directory, hot-reloaded while the process runs.
	FixtureDir string `envconfig:"FIXTURE_DIR" split_words:"true"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("tactician exited")
	}
}

func run(ctx context.Context) error {
	appCfg := configx.MustNew[AppConfig]("")

	var opts []accountx.MockOption
	if appCfg.FixtureDir != "" {
		opts = append(opts, accountx.WithDataDir(appCfg.FixtureDir))
	}
	source, err := accountx.NewMockSource(opts...)
	if err != nil {
		return err
	}
	if source.DataDir() != "" {
		watcher, err := accountx.NewWatcher(source)
		if err != nil {
			return err
		}
		go watcher.Run(ctx)
		log.Info().Str("dir", source.DataDir()).Msg("fixture hot reload enabled")
	}

	engine, err := segmentx.NewEngine(*configx.MustNew[segmentx.Config]("SEGMENT"))
	if err != nil {
		return err
	}
	policy, err := strategyx.LoadPolicy()
	if err != nil {
		return err
	}
	assembler, err := strategyx.NewAssembler(policy)
	if err != nil {
		return err
	}

	draftCfg := configx.MustNew[draftx.Config]("DRAFT")
	var drafts draftx.Store
	if draftCfg.DSN != "" {
		drafts, err = draftx.NewBunStore(ctx, *draftCfg)
		if err != nil {
			return err
		}
		log.Info().Msg("draft store: postgres")
	} else {
		drafts = draftx.NewMemoryStore(draftCfg.PreviewBaseURL)
		log.Info().Msg("draft store: in-memory")
	}

	registry, err := toolx.NewRegistry(source, engine, assembler, drafts)
	if err != nil {
		return err
	}

	llmCfg := configx.MustNew[llmx.Config]("LLM")
	if err := llmCfg.Validate(); err != nil {
		return err
	}
	orCfg := llmCfg.OpenRouter()
	if err := openrouterx.VerifyKey(ctx, orCfg); err != nil {
		return err
	}
	chatModel, err := orCfg.New(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("model", llmCfg.Model).Msg("chat model ready")

	controller, err := tacticianx.NewController(
		chatModel,
		registry,
		promptx.System(),
		*configx.MustNew[tacticianx.Config]("AGENT"),
	)
	if err != nil {
		return err
	}

	var publisher serverx.Publisher
	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	if qstashCfg.Enabled() {
		client, err := qstashx.NewClient(*qstashCfg)
		if err != nil {
			return err
		}
		publisher = client
		log.Info().Msg("approval event publisher enabled")
	}

	srv, err := serverx.New(*configx.MustNew[serverx.Config]("SERVER"), controller, source, drafts, publisher)
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}
