package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/schemadoc"
)

type checkOptions struct {
	schemaPath string
	format     string // auto, json or yaml
	all        bool
	decode     goshape.DecodeOpt
}

var checkOpts checkOptions

var checkCmd = &cobra.Command{
	Use:   "check --schema FILE [FILE...|-]",
	Short: "Validate JSON or YAML inputs against a schema document",
	Long: `Validate each input against the schema document given by --schema.

Each input prints one line, PATH: valid or PATH: invalid. With --all every
top-level JSON value or YAML document is checked and reported as PATH[i].
Without inputs, or with "-", standard input is read.

Exit status is 0 when every input is valid, 1 when any input is invalid and
2 when a schema or input cannot be read.

Examples:
  goshape check --schema user.yaml user.json
  cat users.yaml | goshape check --schema user.yaml --format yaml --all -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return &exitError{code: 2, err: err}
		}
		opts := checkOpts
		opts.decode = cfg.Input.DecodeOpt()
		invalid, err := runCheck(cmd.Context(), opts, args, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		if err != nil {
			return &exitError{code: 2, err: err}
		}
		if invalid {
			return &exitError{code: 1}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkOpts.schemaPath, "schema", "s", "", "schema document (YAML or JSON)")
	checkCmd.Flags().StringVarP(&checkOpts.format, "format", "f", "auto", "input format: auto, json or yaml")
	checkCmd.Flags().BoolVar(&checkOpts.all, "all", false, "validate every top-level value or YAML document")
	_ = checkCmd.MarkFlagRequired("schema")
}

// runCheck reports whether any input was invalid. Inputs that cannot be
// decoded are reported in place and turn into an error once all inputs ran.
// Non-fatal decode issues go to errOut as PATH: warning lines.
func runCheck(ctx context.Context, opt checkOptions, inputs []string, stdin io.Reader, out, errOut io.Writer) (bool, error) {
	switch opt.format {
	case "auto", "json", "yaml":
	default:
		return false, fmt.Errorf("unknown format %q", opt.format)
	}
	s, err := schemadoc.LoadFile(ctx, opt.schemaPath, schemadoc.Options{})
	if err != nil {
		return false, fmt.Errorf("%s: %w", opt.schemaPath, err)
	}
	v, err := goshape.Compile(s)
	if err != nil {
		return false, fmt.Errorf("%s: %w", opt.schemaPath, err)
	}
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	invalid, failed := false, 0
	for _, path := range inputs {
		values, err := readInputs(ctx, path, opt, stdin, errOut)
		if err != nil {
			fmt.Fprintf(out, "%s: error: %v\n", path, err)
			failed++
			continue
		}
		for i, value := range values {
			label := path
			if opt.all {
				label += "[" + strconv.Itoa(i) + "]"
			}
			result := "valid"
			if !v.IsValid(value) {
				result = "invalid"
				invalid = true
			}
			fmt.Fprintf(out, "%s: %s\n", label, result)
		}
	}
	if failed > 0 {
		return invalid, fmt.Errorf("%d input(s) could not be read", failed)
	}
	return invalid, nil
}

func readInputs(ctx context.Context, path string, opt checkOptions, stdin io.Reader, errOut io.Writer) ([]any, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	dec := opt.decode
	if errOut != nil {
		dec.IssueSink = func(is goshape.Issue) {
			fmt.Fprintf(errOut, "%s: warning: %s at %s: %s\n", path, is.Code, is.Path, is.Message)
		}
	}

	src := goshape.JSONReader(r)
	if inputFormat(path, opt.format) == "yaml" {
		src = goshape.YAMLReader(r)
	}
	if opt.all {
		return goshape.DecodeAll(ctx, src, dec)
	}
	value, err := goshape.Decode(ctx, src, dec)
	if err != nil {
		return nil, err
	}
	return []any{value}, nil
}

// inputFormat resolves "auto" from the file extension; standard input and
// unknown extensions are read as JSON.
func inputFormat(path, format string) string {
	if format != "auto" {
		return format
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
