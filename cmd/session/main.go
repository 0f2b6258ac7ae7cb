package main

import (
	"context"

	"github.com/airenas/docbuddy/internal/pkg/blob"
	"github.com/airenas/docbuddy/internal/pkg/postgres"
	"github.com/airenas/docbuddy/internal/pkg/session"
	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	data := &session.Data{}
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

	data.DB, err = postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	data.Blob, err = blob.NewStore(ctx, cfg.GetString("blob.type"), blob.Options{Bucket: cfg.GetString("blob.bucket"),
		URL: cfg.GetString("blob.url"), User: cfg.GetString("blob.user"), Key: cfg.GetString("blob.key"),
		Secure: cfg.GetBool("blob.https"), Region: cfg.GetString("blob.region"),
		PublicURL: cfg.GetString("blob.publicURL")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init blob store")
	}
	data.MsgSender, err = postgres.NewSender(dbPool, cfg.GetDuration("inform.delay"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init sender")
	}

	go utils.RunPerfEndpoint(cfg.GetInt("debug.port"))

	printBanner()

	err = session.StartWebServer(data)
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
                       _         
  ___ ___ ___ ___ ___ (_)__  ___    v: %s
 (_-</ -_|_-<(_-</ _ \/ / _ \/ _ \ 
/___/\__/___/___/\___/_/\___/_//_/ 

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/docbuddy"))
}
