package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/sentinel-dev/sentinel/internal/ignore"
	"github.com/sentinel-dev/sentinel/internal/types"
)

func ignoreCmd() *cli.Command {
	return &cli.Command{
		Name:      "ignore",
		Usage:     "Manage the suppression list",
		ArgsUsage: "<RULE> <FILE>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "symbol", Aliases: []string{"s"}, Usage: "Restrict the suppression to one symbol"},
			&cli.BoolFlag{Name: "list", Usage: "List current suppressions"},
			&cli.StringFlag{Name: "clear", Usage: "Remove every suppression for FILE"},
			&cli.BoolFlag{Name: "show-file", Usage: "Print the central ignore-list path"},
		},
		Action: ignoreAction,
	}
}

func ignoreAction(c *cli.Context) error {
	root, err := projectRoot(c)
	if err != nil {
		return userExit(err)
	}

	switch {
	case c.Bool("show-file"):
		fmt.Println(ignore.StorePath(root))
		return nil

	case c.Bool("list"):
		entries := ignore.List(root)
		if len(entries) == 0 {
			fmt.Println("no suppressions")
			return nil
		}
		for _, e := range entries {
			line := fmt.Sprintf("%s %s", e.Rule, e.File)
			if e.Symbol != "" {
				line += " " + e.Symbol
			}
			fmt.Printf("%s  (added %s)\n", line, e.Added.Format("2006-01-02"))
		}
		return nil

	case c.String("clear") != "":
		removed, clearErr := ignore.ClearFile(root, c.String("clear"))
		if clearErr != nil {
			return userExit(clearErr)
		}
		fmt.Printf("removed %d suppressions for %s\n", removed, c.String("clear"))
		if removed == 0 {
			var files []string
			for _, e := range ignore.List(root) {
				files = append(files, e.File)
			}
			if match, ok := ignore.Suggest(c.String("clear"), files); ok {
				fmt.Printf("did you mean %s?\n", match)
			}
		}
		return nil
	}

	if c.NArg() < 2 {
		return cli.Exit("usage: sentinel ignore <RULE> <FILE> [--symbol S]", exitBadPath)
	}

	entry := types.IgnoreEntry{
		Rule:   c.Args().Get(0),
		File:   c.Args().Get(1),
		Symbol: c.String("symbol"),
	}
	if err := ignore.Add(root, entry); err != nil {
		return userExit(err)
	}
	fmt.Printf("suppressing %s in %s\n", entry.Rule, entry.File)
	return nil
}
