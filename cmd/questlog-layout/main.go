package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/totegamma/questlog"
	"github.com/totegamma/questlog/client"
	"github.com/totegamma/questlog/internal/config"
	"github.com/totegamma/questlog/internal/infrastructure/providers"
	"github.com/totegamma/questlog/kvstore"
	"github.com/totegamma/questlog/layout"
)

var (
	configFlag  string
	noRelations bool
	frameEvery  time.Duration

	conf  config.Config
	store kvstore.Store
	api   *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "questlog-layout",
	Short: "Headless campaign network layout",
	Long: `Headless campaign network layout.
Fetches a campaign network, runs the force simulation and keeps node
positions in the configured key-value store.`,
	PersistentPreRun: setup,
}

var runCmd = &cobra.Command{
	Use:   "run <campaignId>",
	Short: "Simulate until the layout settles and print positions",
	Args:  cobra.ExactArgs(1),
	Run:   runRun,
}

var dragCmd = &cobra.Command{
	Use:   "drag <campaignId> <nodeId> <x> <y>",
	Short: "Move one node and pin it there",
	Args:  cobra.ExactArgs(4),
	Run:   runDrag,
}

var resetCmd = &cobra.Command{
	Use:   "reset <campaignId>",
	Short: "Forget the stored layout and simulate from scratch",
	Args:  cobra.ExactArgs(1),
	Run:   runReset,
}

var searchCmd = &cobra.Command{
	Use:   "search <entityType>",
	Short: "Interactive entity search, one query per input line",
	Args:  cobra.ExactArgs(1),
	Run:   runSearch,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", os.Getenv("QUESTLOG_CONFIG"), "path to config yaml")
	rootCmd.PersistentFlags().DurationVar(&frameEvery, "frame", layout.DefaultFrame, "tick interval")
	runCmd.Flags().BoolVar(&noRelations, "no-relations", false, "leave user-authored relations out of the network")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dragCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute command: %v", err)
	}
}

func setup(cmd *cobra.Command, args []string) {
	var err error
	conf, err = config.Load(configFlag)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err = providers.NewLayoutStore(conf.Layout)
	if err != nil {
		log.Fatalf("Failed to open layout store: %v", err)
	}

	api = client.New(conf.Layout.APIBase)
}

func campaignArg(arg string) int64 {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		log.Fatalf("Invalid campaign id %q", arg)
	}
	return id
}

func engineOptions() layout.Options {
	opts := layout.DefaultOptions()
	if conf.Layout.TickBudget > 0 {
		opts.TickBudget = conf.Layout.TickBudget
	}
	if conf.Layout.EnergyThreshold > 0 {
		opts.EnergyThreshold = conf.Layout.EnergyThreshold
	}
	return opts
}

// session loads the campaign network into an engine driven by a loop.
func session(ctx context.Context, campaignID int64, includeRelationships bool) (*layout.Loop, <-chan struct{}) {
	graph, err := api.Network(ctx, campaignID, includeRelationships)
	if err != nil {
		log.Fatalf("Failed to fetch network: %v", err)
	}

	engine := layout.NewEngine(layout.NewPositionStore(store, campaignID), engineOptions())
	stopped := make(chan struct{})
	var once sync.Once
	loop := layout.NewLoop(engine, frameEvery, func(f layout.Frame) {
		if f.Phase == layout.Stopped {
			once.Do(func() { close(stopped) })
		}
	})

	err = loop.Do(ctx, func(ctx context.Context, e *layout.Engine) {
		e.Load(ctx, graph)
	})
	if err != nil {
		log.Fatalf("Failed to load network: %v", err)
	}
	return loop, stopped
}

func printPositions(ctx context.Context, loop *layout.Loop) {
	var positions map[string]layout.Point
	err := loop.Do(ctx, func(ctx context.Context, e *layout.Engine) {
		positions = e.Positions()
	})
	if err != nil {
		log.Fatalf("Failed to read positions: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(positions); err != nil {
		log.Fatalf("Failed to encode positions: %v", err)
	}
}

func runRun(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	loop, stopped := session(ctx, campaignArg(args[0]), !noRelations)
	defer loop.Close()

	<-stopped
	printPositions(ctx, loop)
}

func runDrag(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	nodeID := args[1]
	if _, err := questlog.ParseEntityKey(nodeID); err != nil {
		log.Fatalf("Invalid node id: %v", err)
	}
	x, errX := strconv.ParseFloat(args[2], 64)
	y, errY := strconv.ParseFloat(args[3], 64)
	if errX != nil || errY != nil {
		log.Fatalf("Invalid position %s,%s", args[2], args[3])
	}

	loop, stopped := session(ctx, campaignArg(args[0]), true)
	defer loop.Close()
	<-stopped

	var dragErr error
	err := loop.Do(ctx, func(ctx context.Context, e *layout.Engine) {
		dragErr = e.BeginDrag(nodeID)
		if dragErr == nil {
			dragErr = e.DragTo(nodeID, x, y)
		}
		if dragErr == nil {
			dragErr = e.EndDrag(ctx, nodeID)
		}
	})
	if err == nil {
		err = dragErr
	}
	if err != nil {
		log.Fatalf("Failed to drag: %v", err)
	}
	printPositions(ctx, loop)
}

func runReset(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	loop, stopped := session(ctx, campaignArg(args[0]), true)
	defer loop.Close()
	<-stopped

	// a fresh stop channel for the second run
	resettled := make(chan struct{})
	var once sync.Once
	disconnect := loop.Observe(func(f layout.Frame) {
		if f.Phase == layout.Stopped {
			once.Do(func() { close(resettled) })
		}
	})
	defer disconnect()

	err := loop.Do(ctx, func(ctx context.Context, e *layout.Engine) {
		e.Reset(ctx)
	})
	if err != nil {
		log.Fatalf("Failed to reset: %v", err)
	}
	<-resettled
	printPositions(ctx, loop)
}

func runSearch(cmd *cobra.Command, args []string) {
	entityType := questlog.EntityType(args[0])
	if !entityType.Valid() {
		log.Fatalf("Unknown entity type %q", args[0])
	}

	// last is the newest query typed; pending until its result is delivered
	var (
		mu      sync.Mutex
		last    string
		pending bool
		eof     bool
	)
	done := make(chan struct{})
	var doneOnce sync.Once

	searcher := client.NewSearcher(client.DefaultDebounce,
		func(ctx context.Context, q string) ([]questlog.EntityRef, error) {
			return api.SearchEntities(ctx, client.SearchParams{EntityType: entityType, Search: q})
		},
		func(q string, refs []questlog.EntityRef, err error) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "search %q failed: %v\n", q, err)
			} else {
				fmt.Printf("%q: %d result(s)\n", q, len(refs))
				for _, ref := range refs {
					fmt.Printf("  %s\t%s\n", ref.Key(), ref.Name)
				}
			}

			mu.Lock()
			defer mu.Unlock()
			if q == last {
				pending = false
				if eof {
					doneOnce.Do(func() { close(done) })
				}
			}
		},
	)
	defer searcher.Close()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		q := scanner.Text()
		mu.Lock()
		last, pending = q, true
		mu.Unlock()
		searcher.Query(q)
	}

	mu.Lock()
	eof = true
	if !pending {
		doneOnce.Do(func() { close(done) })
	}
	mu.Unlock()
	<-done
}
