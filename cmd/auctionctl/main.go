package main

import (
	"os"

	"github.com/jensholdgaard/cricket-auctionbot/cmd/auctionctl/commands"

	// Register store drivers so they are available via store.Open.
	_ "github.com/jensholdgaard/cricket-auctionbot/internal/store/entstore"
	_ "github.com/jensholdgaard/cricket-auctionbot/internal/store/memstore"
	_ "github.com/jensholdgaard/cricket-auctionbot/internal/store/postgres"
	_ "github.com/jensholdgaard/cricket-auctionbot/internal/store/redisstore"
)

func main() {
	if err := commands.NewRootCmd(commands.Deps{}).Execute(); err != nil {
		os.Exit(1)
	}
}
