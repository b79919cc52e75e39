// Package main provides a CLI for seeding characters and editing roleplay
// mode and the ally/enemy graph.
//
// Usage:
//
//	charadmin [-config path] seed -file content/characters/demo.yaml
//	charadmin [-config path] roleplay -id ilsa -on=false
//	charadmin [-config path] relate -id ilsa -other corin -kind ally|enemy|none
//	charadmin [-config path] show -id ilsa
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cory-johannsen/rpcombat/internal/config"
	"github.com/cory-johannsen/rpcombat/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty uses defaults and RPC_ environment variables")
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before configuration")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading %s: %v", *envFile, err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	chars := postgres.NewCharacterRepository(pool.DB())
	rels := postgres.NewRelationshipRepository(pool.DB())

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "seed":
		err = runSeed(ctx, chars, rels, args)
	case "roleplay":
		err = runRoleplay(ctx, chars, args)
	case "relate":
		err = runRelate(ctx, rels, args)
	case "show":
		err = runShow(ctx, chars, rels, args)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
	fmt.Fprintf(os.Stdout, "%s done [%s]\n", cmd, time.Since(start))
}

func runSeed(ctx context.Context, chars *postgres.CharacterRepository, rels *postgres.RelationshipRepository, args []string) error {
	fset := flag.NewFlagSet("seed", flag.ExitOnError)
	file := fset.String("file", "content/characters/demo.yaml", "roster YAML file")
	_ = fset.Parse(args)

	r, err := loadRoster(*file)
	if err != nil {
		return err
	}
	for _, e := range r.Characters {
		created, err := chars.Create(ctx, e.State())
		if err != nil {
			return fmt.Errorf("creating %q: %w", e.ID, err)
		}
		fmt.Fprintf(os.Stdout, "created %s (%s)\n", created.Name, created.ID)
	}
	for _, e := range r.Characters {
		for _, id := range e.Allies {
			if err := rels.Set(ctx, e.ID, id, postgres.Ally); err != nil {
				return err
			}
		}
		for _, id := range e.Enemies {
			if err := rels.Set(ctx, e.ID, id, postgres.Enemy); err != nil {
				return err
			}
		}
	}
	return nil
}

func runRoleplay(ctx context.Context, chars *postgres.CharacterRepository, args []string) error {
	fset := flag.NewFlagSet("roleplay", flag.ExitOnError)
	id := fset.String("id", "", "character id (required)")
	on := fset.Bool("on", true, "enter (true) or leave (false) roleplay mode")
	_ = fset.Parse(args)
	if *id == "" {
		return errors.New("-id is required")
	}
	return chars.SetRoleplay(ctx, *id, *on)
}

func runRelate(ctx context.Context, rels *postgres.RelationshipRepository, args []string) error {
	fset := flag.NewFlagSet("relate", flag.ExitOnError)
	id := fset.String("id", "", "character id (required)")
	other := fset.String("other", "", "related character id (required)")
	kind := fset.String("kind", "", "ally, enemy, or none (required)")
	_ = fset.Parse(args)
	if *id == "" || *other == "" {
		return errors.New("-id and -other are required")
	}
	switch strings.ToLower(*kind) {
	case "none":
		return rels.Clear(ctx, *id, *other)
	case string(postgres.Ally), string(postgres.Enemy):
		return rels.Set(ctx, *id, *other, postgres.Relation(strings.ToLower(*kind)))
	default:
		return fmt.Errorf("invalid kind %q: must be ally, enemy, or none", *kind)
	}
}

func runShow(ctx context.Context, chars *postgres.CharacterRepository, rels *postgres.RelationshipRepository, args []string) error {
	fset := flag.NewFlagSet("show", flag.ExitOnError)
	id := fset.String("id", "", "character id (required)")
	_ = fset.Parse(args)
	if *id == "" {
		return errors.New("-id is required")
	}
	s, err := chars.Get(ctx, *id)
	if err != nil {
		return err
	}
	r, err := rels.Relations(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s (%s) hp=%d/%d roleplay=%v\n", s.Name, s.ID, s.CurrentHP, s.MaxHP, s.Roleplay)
	fmt.Fprintf(os.Stdout, "  attributes: %+v\n", s.Attributes)
	fmt.Fprintf(os.Stdout, "  powers: %s\n", strings.Join(s.Powers, ", "))
	for _, a := range s.Effects {
		fmt.Fprintf(os.Stdout, "  effect: %s [%s] %s\n", a.Name, a.Category, a.Duration)
	}
	fmt.Fprintf(os.Stdout, "  allies: %s\n  enemies: %s\n", strings.Join(r.Allies, ", "), strings.Join(r.Enemies, ", "))
	return nil
}
