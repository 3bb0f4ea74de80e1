package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/talentscout/screener/internal/ai/gemini"
	"github.com/talentscout/screener/internal/intake"
	"github.com/talentscout/screener/internal/logger"
	"github.com/talentscout/screener/internal/secrets"
	"github.com/talentscout/screener/internal/store"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptNewSession = "New session"
	PromptQuit       = "Quit"

	defaultDataDir = "candidate-data"
)

var endPrompt = promptui.Select{
	Label: "Session finished",
	Items: []string{PromptNewSession, PromptQuit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive candidate screening session",
	Run: func(_ *cobra.Command, _ []string) {
		run()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("data-dir", "o", "", "directory for persisted candidate data")

	viper.BindPFlag("data-dir", runCmd.Flags().Lookup("data-dir"))
}

// run is the main command for the cli.
func run() {
	ctx := context.Background()

	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		fmt.Printf("creating a logger: %s\n", err)
		return
	}

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		config = &Config{}
	}

	log.Info("starting the screener", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	log.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	geminiCfg := geminiConfig(config)

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: geminiCfg.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		log.Fatal("loading gemini api key",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY_FILE, GEMINI_API_KEY, or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}

	aiLogger := logger.WithFields(log, logger.ProviderFields(gemini.Provider, geminiCfg.Model)...)

	generator, err := gemini.NewGenerator(ctx, apiKey, geminiCfg.Model, geminiCfg.MaxRetries, aiLogger)
	if err != nil {
		log.Fatal("creating gemini generator", zap.Error(err))
	}

	dataDir := viper.GetString("data-dir")
	if dataDir == "" {
		dataDir = config.DataDir
	}
	if dataDir == "" {
		dataDir = defaultDataDir
	}

	st, err := store.New(dataDir, log)
	if err != nil {
		log.Fatal("creating data store", zap.Error(err))
	}

	intakeCfg := intake.Config{MaxLogLength: geminiCfg.MaxLogLength}
	if config.Intake != nil {
		intakeCfg.Company = config.Intake.Company
		intakeCfg.ReAskLimit = config.Intake.ReAskLimit
		intakeCfg.ExitKeywords = config.Intake.ExitKeywords
	}

	orch := intake.NewOrchestrator(intakeCfg, intake.Deps{
		Completer: generator,
		Persister: st,
		Logger:    log,
	})

	for {
		runSession(ctx, orch, log)

		_, action, err := endPrompt.Run()
		if err != nil || action == PromptQuit {
			log.Info("exiting")
			return
		}
	}
}

// runSession drives one candidate conversation from greeting to a terminal stage.
func runSession(ctx context.Context, orch *intake.Orchestrator, log *zap.Logger) {
	session := orch.NewSession()

	log.Info("starting a screening session", zap.String("session_id", session.ID))

	fmt.Printf("\n%s\n\n", orch.Greeting())

	input := promptui.Prompt{Label: "You"}

	for !session.Context.Stage.Terminal() {
		text, err := input.Run()
		if err != nil {
			// Interrupt or closed input ends the session gracefully.
			log.Info("input closed, ending session", zap.String("session_id", session.ID))
			return
		}

		reply, err := orch.Turn(ctx, session, text)
		if err != nil {
			if errors.Is(err, intake.ErrSessionOver) {
				return
			}
			log.Error("turn failed", zap.String("session_id", session.ID), zap.Error(err))
			return
		}

		fmt.Printf("\n%s\n\n", reply)
		fmt.Printf("(%s)\n\n", session.Progress())
	}
}

func geminiConfig(config *Config) *GeminiConfig {
	if config != nil && config.AI != nil && config.AI.Gemini != nil {
		return config.AI.Gemini
	}
	return &GeminiConfig{APIKeyFile: viper.GetString("ai.gemini.api-key-file")}
}
