package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/crystal-mush/reagentbank/pkg/boltstore"
	"github.com/crystal-mush/reagentbank/pkg/gamedb"
	"github.com/crystal-mush/reagentbank/pkg/itemdb"
)

func main() {
	seedPath := flag.String("seed", "", "Path to a YAML world seed to import")
	boltPath := flag.String("bolt", "data/world.bolt", "Path to the bbolt world store")
	catalog := flag.String("items", "", "Path to the item catalog YAML (default: embedded)")
	force := flag.Bool("force", false, "Import even if the store already holds players")
	showPlayers := flag.Bool("players", false, "List all players")
	flag.Parse()

	if *seedPath == "" && !*showPlayers {
		fmt.Fprintln(os.Stderr, "Usage: dbloader -seed <world.yaml> [-bolt <file>] [-items <catalog>] [-force]")
		fmt.Fprintln(os.Stderr, "       dbloader -bolt <file> -players")
		os.Exit(1)
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := boltstore.Open(*boltPath, log)
	if err != nil {
		log.Fatal("open store", zap.Error(err))
	}
	defer store.Close()

	if *seedPath != "" {
		if store.HasData() && !*force {
			log.Fatal("store already has players; use -force to import anyway", zap.String("path", *boltPath))
		}
		var items *itemdb.Registry
		if *catalog != "" {
			items, err = itemdb.LoadFile(*catalog)
		} else {
			items, err = itemdb.LoadEmbedded()
		}
		if err != nil {
			log.Fatal("load item catalog", zap.Error(err))
		}
		seed, err := LoadSeed(*seedPath)
		if err != nil {
			log.Fatal("load seed", zap.Error(err))
		}
		db, err := seed.Build(items, bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("build world", zap.Error(err))
		}
		if err := store.ImportFromDatabase(db); err != nil {
			log.Fatal("import", zap.Error(err))
		}
	} else if err := store.LoadAll(); err != nil {
		log.Fatal("load store", zap.Error(err))
	}

	printSummary(store.DB())
	if *showPlayers {
		fmt.Println()
		printPlayers(store.DB())
	}
}

func printSummary(db *gamedb.Database) {
	fmt.Println("=== WORLD SUMMARY ===")
	fmt.Printf("Players:   %d\n", len(db.Players))
	fmt.Printf("Guilds:    %d\n", len(db.Guilds))
	fmt.Printf("Creatures: %d\n", len(db.Creatures))
}

func printPlayers(db *gamedb.Database) {
	fmt.Println("=== PLAYERS ===")
	refs := make([]gamedb.DBRef, 0, len(db.Players))
	for ref := range db.Players {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })

	fmt.Printf("%-6s %-20s %-20s %10s %6s\n", "Ref", "Name", "Guild", "Gold", "Items")
	for _, ref := range refs {
		p := db.Players[ref]
		guild := ""
		if g := db.GuildOf(p); g != nil {
			guild = g.Name
			if g.Leader == p.Ref {
				guild += " *"
			}
		}
		stacks := 0
		if p.Inv != nil {
			p.Inv.ForEach(func(uint8, uint8, gamedb.Item) { stacks++ })
		}
		fmt.Printf("#%-5d %-20s %-20s %10d %6d\n", ref, p.Name, guild, p.Money/gamedb.Gold, stacks)
	}
}
