package main

import (
	"context"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/jsonschema"
	"github.com/reoring/goshape/schemadoc"
)

var lintJSONSchema bool

var lintCmd = &cobra.Command{
	Use:   "lint FILE...",
	Short: "Check schema documents",
	Long: `Load each schema document and print its rendered schema, or the issues
that prevent it from loading. With --jsonschema the JSON Schema export is
printed instead of the rendered schema.

Examples:
  goshape lint schemas/*.yaml
  goshape lint --jsonschema schemas/user.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !runLint(cmd.Context(), args, lintJSONSchema, cmd.OutOrStdout()) {
			return &exitError{code: 1}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().BoolVar(&lintJSONSchema, "jsonschema", false, "print the JSON Schema export")
}

// runLint reports whether every document loaded.
func runLint(ctx context.Context, paths []string, asJSONSchema bool, out io.Writer) bool {
	ok := true
	for _, path := range paths {
		s, err := schemadoc.LoadFile(ctx, path, schemadoc.Options{})
		if err != nil {
			ok = false
			fmt.Fprintf(out, "%s: FAIL\n", path)
			iss, isIssues := goshape.AsIssues(err)
			if !isIssues {
				fmt.Fprintf(out, "  %v\n", err)
				continue
			}
			for _, it := range iss {
				fmt.Fprintf(out, "  %s at %s: %s\n", it.Code, it.Path, it.Message)
			}
			continue
		}
		if !asJSONSchema {
			fmt.Fprintf(out, "%s: ok\n  %s\n", path, s)
			continue
		}
		js, err := jsonschema.FromSchema(s)
		if err != nil {
			ok = false
			fmt.Fprintf(out, "%s: FAIL\n  %v\n", path, err)
			continue
		}
		b, err := json.MarshalIndent(js, "", "  ")
		if err != nil {
			ok = false
			fmt.Fprintf(out, "%s: FAIL\n  %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "%s\n", b)
	}
	return ok
}
