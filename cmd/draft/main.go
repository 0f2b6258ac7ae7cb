package main

import (
	"context"

	"github.com/airenas/docbuddy/internal/pkg/analysis"
	"github.com/airenas/docbuddy/internal/pkg/audio"
	"github.com/airenas/docbuddy/internal/pkg/blob"
	"github.com/airenas/docbuddy/internal/pkg/draft"
	"github.com/airenas/docbuddy/internal/pkg/postgres"
	"github.com/airenas/docbuddy/internal/pkg/transcriber"
	"github.com/airenas/docbuddy/internal/pkg/usage"
	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/spf13/viper"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	data := &draft.Data{}
	data.Port = cfg.GetInt("port")

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	data.DB = db

	data.Blob, err = newBlobStore(ctx, cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init blob store")
	}

	data.Ledger, err = usage.NewLedger(db, cfg.GetFloat64("usage.cap"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init usage ledger")
	}
	data.Estimator = audio.NewEstimator(cfg.GetString("ffprobe.path"))

	data.Transcriber, err = transcriber.NewClient(cfg.GetString("stt.url"), cfg.GetString("stt.key"),
		cfg.GetString("stt.model"), uint64(cfg.GetInt("stt.retries")))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init transcriber")
	}
	data.Analyzer, err = analysis.NewClient(cfg.GetString("analysis.url"), cfg.GetString("analysis.key"),
		cfg.GetString("analysis.model"), uint64(cfg.GetInt("analysis.retries")))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init analysis client")
	}
	data.Prompts = draft.Prompts{Clinic: cfg.GetString("analysis.clinicPrompt"),
		Summary: cfg.GetString("analysis.summaryPrompt")}

	data.MsgSender, err = postgres.NewSender(dbPool, cfg.GetDuration("inform.delay"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init sender")
	}

	go utils.RunPerfEndpoint(cfg.GetInt("debug.port"))

	printBanner()

	err = draft.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
}

func newBlobStore(ctx context.Context, cfg *viper.Viper) (blob.Store, error) {
	goapp.Log.Info().Str("type", cfg.GetString("blob.type")).Msg("blob")
	return blob.NewStore(ctx, cfg.GetString("blob.type"), blob.Options{Bucket: cfg.GetString("blob.bucket"),
		URL: cfg.GetString("blob.url"), User: cfg.GetString("blob.user"), Key: cfg.GetString("blob.key"),
		Secure: cfg.GetBool("blob.https"), Region: cfg.GetString("blob.region"),
		PublicURL: cfg.GetString("blob.publicURL")})
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
     __           __              __    __     
 ___/ /__  ____  / /  __ _____ __/ /___/ /_ __
/ _  / _ \/ __/ / _ \/ // / _ / _  / _  / // /
\_,_/\___/\__/ /_.__/\_,_/\_,_/\_,_/\_,_/\_, / 
                                        /___/  
      __         ______ 
 ___/ /______ _/ _/ /_     v: %s
/ _  / __/ _ ` + "`" + `/ _/ __/ 
\_,_/_/  \_,_/_/ \__/  

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/docbuddy"))
}
