package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/gophkeeper/internal/server"
	"github.com/dmitrijs2005/gophkeeper/internal/server/config"
)

const usage = `Usage: server [-p port] [-f datafile] [-k keyfile_basename] [-t threads]
               [-b buckets] [-i quota_interval] [-u upload_quota]
               [-d download_quota] [-r request_quota] [-o top_size]
               [-a admin_username] [-h]
`

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	if cfg.Help {
		fmt.Fprint(os.Stderr, usage)
		return
	}

	app, err := server.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	app.Run(ctx)

}
