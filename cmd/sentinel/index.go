package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/sentinel-dev/sentinel/internal/config"
	"github.com/sentinel-dev/sentinel/internal/indexer"
	"github.com/sentinel-dev/sentinel/internal/store"
)

func indexCmd() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Manage the symbol and call-graph index",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "rebuild", Usage: "Truncate and rebuild the whole index"},
			&cli.BoolFlag{Name: "check", Usage: "Report index freshness without modifying it"},
		},
		Action: indexAction,
	}
}

func indexAction(c *cli.Context) error {
	if c.Bool("rebuild") && c.Bool("check") {
		return cli.Exit("--rebuild and --check are mutually exclusive", exitBadPath)
	}

	root, err := projectRoot(c)
	if err != nil {
		return userExit(err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return userExit(err)
	}

	st, err := openStore(root)
	if err != nil {
		return userExit(err)
	}
	defer st.Close()

	if c.Bool("check") {
		return indexCheck(c, root, cfg, st)
	}

	if c.Bool("rebuild") {
		if err := st.ClearAll(c.Context); err != nil {
			return userExit(err)
		}
	}

	ix := indexer.New(st, root)
	if err := ix.IndexProject(c.Context, cfg); err != nil {
		return userExit(err)
	}

	count, err := st.IndexedFileCount(c.Context)
	if err != nil {
		return userExit(err)
	}
	fmt.Printf("indexed %d files (populated=%t)\n", count, st.IsPopulated())
	return nil
}

// indexCheck reports staleness: the index is out of date once the
// absolute difference between on-disk and indexed file counts passes
// max(5, disk/10).
func indexCheck(c *cli.Context, root string, cfg *config.Config, st *store.Store) error {
	files, err := collectFiles(root, root, cfg)
	if err != nil {
		return userExit(err)
	}
	diskCount := len(files)

	indexed, err := st.IndexedFileCount(c.Context)
	if err != nil {
		return userExit(err)
	}

	symbols, _ := st.GetSymbols(c.Context, 0)
	edges, _ := st.GetCallGraph(c.Context, 0)
	imports, _ := st.GetImportUsage(c.Context, 0)

	fmt.Printf("disk files:   %d\n", diskCount)
	fmt.Printf("indexed:      %d files, %d symbols, %d call edges, %d imports\n",
		indexed, len(symbols), len(edges), len(imports))
	fmt.Printf("populated:    %t\n", st.IsPopulated())

	divergence := diskCount - indexed
	if divergence < 0 {
		divergence = -divergence
	}
	threshold := staleness(diskCount)
	if divergence > threshold {
		fmt.Printf("stale: %d files diverge (threshold %d); run `sentinel index --rebuild`\n", divergence, threshold)
		return cli.Exit("", exitViolation)
	}
	fmt.Println("index is fresh")
	return nil
}

func staleness(diskCount int) int {
	if t := diskCount / 10; t > 5 {
		return t
	}
	return 5
}
