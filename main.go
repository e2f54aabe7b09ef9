package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"parley/relay"
	"parley/store"
	"parley/stt"
	"parley/translate"
	"parley/tts"
	"parley/web"
)

var logger *log.Logger

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listTranscriptsCmd)

	rootCmd.PersistentFlags().Int("port", 8080, "HTTP server port")
	rootCmd.PersistentFlags().
		String("speechmatics-api-key", "", "Speechmatics API key")
	rootCmd.PersistentFlags().String("minimax-api-key", "", "MiniMax API key")
	rootCmd.PersistentFlags().String("minimax-group-id", "", "MiniMax group ID")
	rootCmd.PersistentFlags().
		String("minimax-base-url", translate.MinimaxBaseURL, "MiniMax API base URL")
	rootCmd.PersistentFlags().
		String("tts-provider", "minimax", "Speech synthesis provider (minimax or speechmatics)")
	rootCmd.PersistentFlags().
		String("database-url", "", "Postgres URL for transcript archival")
	rootCmd.PersistentFlags().
		Int("flush-timeout-ms", 1500, "Silence before an utterance is flushed")

	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag(
		"speechmatics_api_key",
		rootCmd.PersistentFlags().Lookup("speechmatics-api-key"),
	)
	viper.BindPFlag(
		"minimax_api_key",
		rootCmd.PersistentFlags().Lookup("minimax-api-key"),
	)
	viper.BindPFlag(
		"minimax_group_id",
		rootCmd.PersistentFlags().Lookup("minimax-group-id"),
	)
	viper.BindPFlag(
		"minimax_base_url",
		rootCmd.PersistentFlags().Lookup("minimax-base-url"),
	)
	viper.BindPFlag(
		"tts_provider",
		rootCmd.PersistentFlags().Lookup("tts-provider"),
	)
	viper.BindPFlag(
		"database_url",
		rootCmd.PersistentFlags().Lookup("database-url"),
	)
	viper.BindPFlag(
		"flush_timeout_ms",
		rootCmd.PersistentFlags().Lookup("flush-timeout-ms"),
	)
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Error reading config file: %s\n", err)
		}
	}

	logger = log.New(os.Stdout)
}

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley is a live speech interpretation relay",
	Long:  `Parley relays live speech between participants, transcribing, translating and dubbing it into each listener's language.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay server",
	Run:   runServe,
}

var listTranscriptsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List recent archived transcripts",
	Run:   runListTranscripts,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) {
	mainLogger := logger.With().WithPrefix("main")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var recognition stt.SpeechRecognition
	if key := viper.GetString("speechmatics_api_key"); key != "" {
		recognition = stt.NewSpeechmaticsClient(
			key,
			logger.With().WithPrefix("hear"),
		)
	}

	var translator translate.Translator
	if key := viper.GetString("minimax_api_key"); key != "" {
		translator = translate.NewMinimaxTranslator(
			key,
			viper.GetString("minimax_base_url"),
			logger.With().WithPrefix("xlat"),
		)
	}

	synthesizer := buildSynthesizer(logger.With().WithPrefix("talk"))

	archive, closeStore, err := openStore(ctx)
	if err != nil {
		mainLogger.Fatal("open transcript store", "error", err.Error())
	}
	defer closeStore()

	registry := relay.NewRegistry(relay.Config{
		Recognition:  recognition,
		Translator:   translator,
		Synthesizer:  synthesizer,
		Archive:      archive,
		FlushTimeout: time.Duration(viper.GetInt("flush_timeout_ms")) * time.Millisecond,
		Logger:       logger.With().WithPrefix("room"),
	})

	handler := web.NewHandler(registry, logger.With().WithPrefix("http"))

	port := viper.GetInt("port")
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler.Router(),
	}

	go func() {
		mainLogger.Info("listening", "url", fmt.Sprintf("http://localhost:%d", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mainLogger.Fatal("start HTTP server", "error", err.Error())
		}
	}()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	mainLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLogger.Error("shutdown", "error", err.Error())
	}
}

// buildSynthesizer assembles the synthesis stack from tts_provider. The
// selected provider goes first; whichever other provider is configured backs
// it up, so a Speechmatics preview voice that does not cover the target
// language still yields MiniMax audio.
func buildSynthesizer(ttsLogger *log.Logger) tts.Synthesizer {
	minimaxKey := viper.GetString("minimax_api_key")
	minimaxGroup := viper.GetString("minimax_group_id")
	speechmaticsKey := viper.GetString("speechmatics_api_key")

	var minimax tts.Synthesizer
	if minimaxKey != "" && minimaxGroup != "" {
		minimax = tts.NewMinimaxSynthesizer(minimaxKey, minimaxGroup, ttsLogger)
	}
	var speechmatics tts.Synthesizer
	if speechmaticsKey != "" {
		speechmatics = tts.NewSpeechmaticsSynthesizer(speechmaticsKey, ttsLogger)
	}

	var primary, secondary tts.Synthesizer
	switch viper.GetString("tts_provider") {
	case "speechmatics":
		primary, secondary = speechmatics, minimax
	default:
		primary, secondary = minimax, speechmatics
	}

	if primary == nil {
		return secondary
	}
	if secondary == nil {
		return primary
	}
	return tts.NewFallback(primary, secondary, ttsLogger)
}

// openStore returns the archive collaborator. Without a database URL the
// discard store is used and transcripts are simply not kept.
func openStore(ctx context.Context) (relay.TranscriptArchiver, func(), error) {
	databaseURL := viper.GetString("database_url")
	if databaseURL == "" {
		return &archiveAdapter{store: store.Discard{}}, func() {}, nil
	}

	pg, err := store.OpenPostgres(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	return &archiveAdapter{store: pg}, pg.Close, nil
}

// archiveAdapter bridges the relay's archival boundary to the store's
// record type.
type archiveAdapter struct {
	store store.TranscriptStore
}

func (a *archiveAdapter) SaveTranscript(ctx context.Context, rec relay.TranscriptRecord) error {
	return a.store.SaveTranscript(ctx, store.TranscriptRecord{
		SessionID:      rec.SessionID,
		SessionCode:    rec.SessionCode,
		SpeakerID:      rec.SpeakerID,
		SpeakerName:    rec.SpeakerName,
		SourceLanguage: rec.SourceLanguage,
		TargetLanguage: rec.TargetLanguage,
		Original:       rec.Original,
		Translated:     rec.Translated,
	})
}

func runListTranscripts(cmd *cobra.Command, args []string) {
	mainLogger := logger.With().WithPrefix("main")

	databaseURL := viper.GetString("database_url")
	if databaseURL == "" {
		mainLogger.Fatal("missing DATABASE_URL or --database-url=")
	}

	ctx := context.Background()
	pg, err := store.OpenPostgres(ctx, databaseURL)
	if err != nil {
		mainLogger.Fatal("open transcript store", "error", err.Error())
	}
	defer pg.Close()

	records, err := pg.ListRecent(ctx, 100)
	if err != nil {
		mainLogger.Fatal("fetch transcripts", "error", err.Error())
	}

	if len(records) == 0 {
		fmt.Println("No transcripts found.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Created At", "Session", "Speaker", "From", "To", "Original", "Translated"})
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for _, rec := range records {
		table.Append([]string{
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			rec.SessionCode,
			rec.SpeakerName,
			rec.SourceLanguage,
			rec.TargetLanguage,
			rec.Original,
			rec.Translated,
		})
	}

	table.Render()
}
