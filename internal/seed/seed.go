// Package seed builds the starting point of a fresh auction session from
// configuration.
package seed

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/jensholdgaard/cricket-auctionbot/internal/auction"
	"github.com/jensholdgaard/cricket-auctionbot/internal/budget"
	"github.com/jensholdgaard/cricket-auctionbot/internal/config"
	"github.com/jensholdgaard/cricket-auctionbot/internal/roster"
	"github.com/jensholdgaard/cricket-auctionbot/internal/rules"
)

// Defaults builds the settings a fresh session starts from.
func Defaults(cfg config.AuctionConfig) (auction.Defaults, error) {
	bases := roster.DefaultCategoryBases()
	maps.Copy(bases, cfg.CategoryBases)

	rs := rules.Default()
	if cfg.RulesFile != "" {
		loaded, err := rules.LoadFile(cfg.RulesFile)
		if err != nil {
			return auction.Defaults{}, fmt.Errorf("loading rules: %w", err)
		}
		rs = loaded
	}

	b := budget.Budget{
		TotalPoints:      cfg.TotalPoints,
		PlayersNeeded:    cfg.PlayersNeeded,
		MinBasePerPlayer: cfg.MinBasePerPlayer,
	}
	if err := b.Validate(); err != nil {
		return auction.Defaults{}, err
	}
	return auction.Defaults{Budget: b, Rules: rs, Bases: bases}, nil
}

// Roster picks the first configured roster source: a local file, a
// remote sheet, then the built-in sample. fetcher may be nil when no
// roster URL is configured.
func Roster(cfg config.AuctionConfig, bases roster.CategoryBases, fetcher auction.RosterFetcher) auction.Seed {
	return func(ctx context.Context) (string, []roster.Player, error) {
		switch {
		case cfg.RosterFile != "":
			f, err := os.Open(filepath.Clean(cfg.RosterFile))
			if err != nil {
				return "", nil, fmt.Errorf("opening roster file: %w", err)
			}
			defer f.Close()
			players, err := roster.ParseCSV(f)
			return cfg.RosterFile, players, err

		case cfg.RosterURL != "":
			body, err := fetcher.FetchCSV(ctx, cfg.RosterURL)
			if err != nil {
				return "", nil, err
			}
			defer body.Close()
			players, err := roster.ParseCSV(body)
			return cfg.RosterURL, players, err

		default:
			players, err := roster.Sample(bases)
			return "sample", players, err
		}
	}
}
