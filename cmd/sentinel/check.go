package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/sentinel-dev/sentinel/internal/config"
	"github.com/sentinel-dev/sentinel/internal/ignore"
	"github.com/sentinel-dev/sentinel/internal/logging"
	"github.com/sentinel-dev/sentinel/internal/render"
	"github.com/sentinel-dev/sentinel/internal/types"
)

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Run the static-analysis pipeline on files",
		ArgsUsage: "<target>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, sarif",
				Value:   "text",
			},
		},
		Action: checkAction,
	}
}

func checkAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: sentinel check <target>", exitBadPath)
	}
	format := c.String("format")
	switch format {
	case "text", "json", "sarif":
	default:
		return cli.Exit(fmt.Sprintf("unknown format %q (want text, json, or sarif)", format), exitBadPath)
	}
	if format != "text" {
		// Machine-readable stdout; logs would corrupt it.
		logging.SetQuietStdout(true)
	}

	root, err := projectRoot(c)
	if err != nil {
		return userExit(err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return userExit(err)
	}

	files, err := collectFiles(root, c.Args().First(), cfg)
	if err != nil {
		return userExit(err)
	}

	st, err := openStoreIfPresent(root)
	if err != nil {
		return userExit(err)
	}
	if st != nil {
		defer st.Close()
	}

	eng, err := newEngine(root, cfg, st)
	if err != nil {
		return userExit(err)
	}
	ignores := ignore.LoadAll(root)

	var violations []types.Violation
	checked := 0
	for _, rel := range files {
		content, readErr := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if readErr != nil {
			logging.Error("skipping %s: %v", rel, readErr)
			continue
		}
		checked++

		found, valErr := eng.ValidateFile(c.Context, rel, content)
		if valErr != nil {
			logging.Error("analysis failed for %s: %v", rel, valErr)
			continue
		}
		violations = append(violations, ignores.Filter(found)...)
	}

	summary := render.Summary{
		Checked:        checked,
		IndexPopulated: st != nil && st.IsPopulated(),
	}

	switch format {
	case "json":
		err = render.JSON(os.Stdout, violations, summary)
	case "sarif":
		err = render.SARIF(os.Stdout, violations)
	default:
		err = render.Text(os.Stdout, violations, summary)
	}
	if err != nil {
		return userExit(err)
	}

	for _, v := range violations {
		if v.Level == types.LevelError {
			return cli.Exit("", exitViolation)
		}
	}
	return nil
}
