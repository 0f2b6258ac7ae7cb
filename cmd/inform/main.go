package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	ainform "github.com/airenas/async-api/pkg/inform"
	"github.com/airenas/docbuddy/internal/pkg/inform"
	"github.com/airenas/docbuddy/internal/pkg/postgres"
	"github.com/airenas/docbuddy/internal/pkg/utils"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/spf13/viper"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	data := &inform.ServiceData{}

	dbPool, err := pgxpool.New(context.Background(), cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	data.GueClient, err = gue.NewClient(pgxv5.NewConnPool(dbPool),
		gue.WithClientLogger(utils.NewGueLoggerAdapter("inform")))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue")
	}
	data.WorkerCount = cfg.GetInt("worker.count")

	data.EmailMaker, err = ainform.NewTemplateEmailMaker(cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init email maker")
	}
	data.Location, err = loadLocation(cfg.GetString("worker.location"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init location")
	}
	data.EmailSender, err = newEmailSender(cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init email sender")
	}
	data.DB, err = postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}

	go utils.RunPerfEndpoint(cfg.GetInt("debug.port"))

	printBanner()

	ctx, cancelFunc := context.WithCancel(context.Background())
	doneCh, err := inform.StartWorkerService(ctx, data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start inform service")
	}
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case <-doneCh:
		goapp.Log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
}

// newEmailSender returns the fake http sender if smtp.fakeUrl is set
func newEmailSender(cfg *viper.Viper) (inform.Sender, error) {
	if cfg.GetString("smtp.fakeUrl") != "" {
		goapp.Log.Info().Str("sender", "fake").Msg("smtp")
		return inform.NewFakeEmailSender(cfg)
	}
	goapp.Log.Info().Str("sender", "real").Msg("smtp")
	return ainform.NewSimpleEmailSender(cfg)
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return nil, nil
	}
	res, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	goapp.Log.Info().Str("local", time.Now().In(res).Format(time.RFC3339)).Msg("time")
	return res, nil
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
   _      ___               
  (_)__  / _/__  ______ _     v: %s
 / / _ \/ _/ _ \/ __/  ' \ 
/_/_//_/_/ \___/_/ /_/_/_/ 

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/docbuddy"))
}
