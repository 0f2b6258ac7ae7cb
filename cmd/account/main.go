package main

import (
	"context"

	"github.com/airenas/docbuddy/internal/pkg/account"
	"github.com/airenas/docbuddy/internal/pkg/postgres"
	"github.com/airenas/docbuddy/internal/pkg/usage"
	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	data := &account.Data{}
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
	data.Usage, err = usage.NewLedger(db, cfg.GetFloat64("usage.cap"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init usage ledger")
	}
	data.Prompts = account.Prompts{Clinic: cfg.GetString("analysis.clinicPrompt"),
		Summary: cfg.GetString("analysis.summaryPrompt")}

	go utils.RunPerfEndpoint(cfg.GetInt("debug.port"))

	printBanner()

	err = account.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
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
                              __ 
 ___ ____________  __ _____  / /_    v: %s
/ _ ` + "`" + `/ __/ __/ _ \/ // / _ \/ __/ 
\_,_/\__/\__/\___/\_,_/_//_/\__/  

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/docbuddy"))
}
