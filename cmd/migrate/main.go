package main

import (
	"context"
	"time"

	"github.com/airenas/docbuddy/internal/pkg/postgres"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	printBanner()

	timeout := cfg.GetDuration("migrate.timeout")
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cf := context.WithTimeout(context.Background(), timeout)
	defer cf()
	if err := postgres.Migrate(ctx, cfg.GetString("db.url")); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't migrate")
	}
	goapp.Log.Info().Msg("Done")
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
           _                 __     
  __ _  (_)__ ________ _/ /____   v: %s
 /  ' \/ / _ ` + "`" + `/ __/ _ ` + "`" + `/ __/ -_)
/_/_/_/_/\_, /_/  \_,_/\__/\__/ 
        /___/                   

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/docbuddy"))
}
