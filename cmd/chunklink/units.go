// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chunklink/chunklink/internal/bundle"
	"github.com/chunklink/chunklink/internal/report"
)

type unitsFlagValues struct {
	defs    bool
	sources bool
}

func newUnitsCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &unitsFlagValues{}
	unitsCmd := &cobra.Command{
		Use:   "units <manifest>",
		Short: "Show the compilation units a manifest links into",
		Long: `Show the parent-ordered compilation units the linker derives from
<manifest> without running the compiler.

With --defs the raw unit definitions handed to the compiler are printed,
one per line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context(), rootFlags)
			if err != nil {
				return app.fail(err, nil, rootFlags)
			}
			logger := app.logger(cfg, rootFlags)
			err = showUnits(app, &bundle.Pipeline{Logger: logger}, args[0], flags)
			return app.fail(err, cfg, rootFlags)
		},
	}

	unitsCmd.Flags().BoolVar(&flags.defs, "defs", false, "print raw unit definitions")
	unitsCmd.Flags().BoolVar(&flags.sources, "sources", false, "list the sources of every unit")

	return unitsCmd
}

func showUnits(app *App, p *bundle.Pipeline, manifest string, flags *unitsFlagValues) error {
	g, err := loadManifest(manifest)
	if err != nil {
		return err
	}
	plan, err := p.Plan(g)
	if err != nil {
		return newServiceError(err, classifyError(err))
	}
	lin := plan.Linearization

	if flags.defs {
		for _, def := range plan.Request.Units {
			fmt.Fprintln(app.stdout, def)
		}
		return nil
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render(fmt.Sprintf("Compilation units (%d)", len(lin.Units))))
	fmt.Fprintln(app.stdout)

	baseDir := filepath.Dir(manifest)
	if abs, absErr := filepath.Abs(baseDir); absErr == nil {
		baseDir = abs
	}
	offset := 0
	for _, u := range lin.Units {
		line := fmt.Sprintf("  %s %s", CmdStyle.Render(u.Name), VerboseStyle.Render(fmt.Sprintf("%d source(s)", u.Count)))
		if len(u.Parents) > 0 {
			line += SubtitleStyle.Render(" ← " + strings.Join(u.Parents, ", "))
		}
		if lin.Entries[u.Name] {
			line += " " + SuccessStyle.Render("entry")
		}
		fmt.Fprintln(app.stdout, line)

		if flags.sources {
			end := min(offset+u.Count, len(lin.Sources))
			for _, f := range lin.Sources[offset:end] {
				fmt.Fprintf(app.stdout, "      %s\n", VerboseStyle.Render(report.ShortPath(baseDir, f.Path)))
			}
		}
		offset += u.Count
	}

	fmt.Fprintln(app.stdout)
	loader := "no"
	if plan.NeedsLoader {
		loader = "yes"
	}
	fmt.Fprintf(app.stdout, "%s %d   %s %s\n", SubtitleStyle.Render("Sources:"), len(lin.Sources), SubtitleStyle.Render("Loader runtime:"), loader)

	for _, d := range lin.Duplicates {
		fmt.Fprintf(app.stderr, "%s %s\n", WarningStyle.Render("warning:"), d.Error())
	}
	return nil
}
