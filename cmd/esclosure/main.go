package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/evanw/esclosure/internal/config"
	"github.com/evanw/esclosure/internal/exitcode"
	"github.com/evanw/esclosure/internal/logger"
	"github.com/evanw/esclosure/pkg/api"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const examples = `  # Compile a chunk produced by a bundler and keep its exports
  esclosure chunk dist/index.js --outfile=dist/index.min.js --sourcemap \
    --flag compilation_level=ADVANCED

  # Use the in-process esbuild backend instead of Closure Compiler
  ESCLOSURE_COMPILER=esbuild esclosure chunk < dist/index.js

  # Show what the source passes do to a module
  esclosure module src/a.js --mangle`

type flags struct {
	format       string
	name         string
	compiler     string
	compileFlags []string
	logLevel     string
	color        string
	debugDir     string
	envFile      string
	outfile      string
	sourcemap    bool
	mangle       bool
	timing       bool
	facade       string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	cmd, f := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		color := logger.ColorIfTerminal
		switch parseColor(f.color) {
		case api.ColorAlways:
			color = logger.ColorAlways
		case api.ColorNever:
			color = logger.ColorNever
		}
		logger.PrintErrorToStderr(logger.OutputOptions{Color: color}, err.Error())
	}
	exitcode.Exit(err)
}

func newRootCommand() (*cobra.Command, *flags) {
	f := &flags{}
	root := &cobra.Command{
		Use:           "esclosure",
		Short:         "Prepare bundler output for Google Closure Compiler and restore its exports",
		Example:       examples,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	persistent := root.PersistentFlags()
	persistent.StringVar(&f.format, "format", "esm", "Output format of the chunk (iife, cjs, esm, amd, umd, system)")
	persistent.StringVar(&f.name, "name", "", "The global name of an iife or umd bundle")
	persistent.StringVar(&f.compiler, "compiler", "", "Compiler backend (closure, esbuild, minify, identity)")
	persistent.StringArrayVar(&f.compileFlags, "flag", nil, "A compiler flag as key=value, may be repeated")
	persistent.StringVar(&f.logLevel, "log-level", "", "Logging level (verbose, info, warning, error, silent)")
	persistent.StringVar(&f.color, "color", "", "Force use of color terminal escapes (true or false)")
	persistent.StringVar(&f.debugDir, "debug-dir", "", "Write the transform log of every unit to this directory")
	persistent.StringVar(&f.envFile, "env-file", "", "Load settings from this file instead of .env")
	persistent.BoolVar(&f.mangle, "mangle", false, "Mangle names that cross module boundaries")
	persistent.BoolVar(&f.timing, "timing", false, "Log how long every pass takes")

	chunk := &cobra.Command{
		Use:   "chunk [file]",
		Short: "Compile one rendered chunk (reads stdin without a file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChunk(cmd, f, args)
		},
	}
	chunk.Flags().StringVar(&f.outfile, "outfile", "", "Write the output here instead of stdout")
	chunk.Flags().BoolVar(&f.sourcemap, "sourcemap", false, "Also write a source map next to --outfile")
	chunk.Flags().StringVar(&f.facade, "facade", "", "The entry module the chunk was built for")

	module := &cobra.Command{
		Use:   "module [file]",
		Short: "Run the source passes over one module (reads stdin without a file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModule(cmd, f, args)
		},
	}

	root.AddCommand(chunk, module)
	return root, f
}

func parseColor(text string) api.StderrColor {
	switch text {
	case "true":
		return api.ColorAlways
	case "false":
		return api.ColorNever
	}
	return api.ColorIfTerminal
}

func parseLogLevel(text string) (api.LogLevel, error) {
	level, ok := logger.ParseLogLevel(text)
	if !ok {
		return 0, &config.Error{Text: fmt.Sprintf("Invalid log level: %q", text)}
	}
	switch level {
	case logger.LevelVerbose:
		return api.LogLevelVerbose, nil
	case logger.LevelInfo:
		return api.LogLevelInfo, nil
	case logger.LevelWarning:
		return api.LogLevelWarning, nil
	case logger.LevelError:
		return api.LogLevelError, nil
	}
	return api.LogLevelSilent, nil
}

func newPlugin(f *flags) (*api.Plugin, api.OutputOptions, error) {
	var envFiles []string
	if f.envFile != "" {
		envFiles = append(envFiles, f.envFile)
	}
	env, err := config.FromEnv(envFiles...)
	if err != nil {
		return nil, api.OutputOptions{}, err
	}
	if f.compiler != "" {
		env.Compiler = f.compiler
	}
	if f.debugDir != "" {
		env.DebugDir = f.debugDir
	}
	if f.logLevel != "" {
		env.LogLevel = f.logLevel
	}

	format, ok := config.ParseFormat(f.format)
	if !ok {
		return nil, api.OutputOptions{}, &config.Error{Text: fmt.Sprintf("Invalid format: %q", f.format)}
	}
	output := api.OutputOptions{Format: format, Name: f.name}

	options := config.CompileOptions{}
	for _, text := range f.compileFlags {
		key, value, err := config.ParseFlag(text)
		if err != nil {
			return nil, api.OutputOptions{}, err
		}
		options.Add(key, value)
	}

	logLevel, err := parseLogLevel(env.LogLevel)
	if err != nil {
		return nil, api.OutputOptions{}, err
	}

	plugin, err := api.New(api.Options{
		Color:          parseColor(f.color),
		LogLevel:       logLevel,
		Timing:         f.timing,
		CompileOptions: options,
		MangleSources:  f.mangle,
		Env:            env,
		DebugDir:       env.DebugDir,
		EntryPoints:    1,
	})
	return plugin, output, err
}

func readInput(cmd *cobra.Command, args []string) (string, string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", errors.Wrap(err, "reading stdin")
		}
		return "<stdin>", string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", errors.Wrapf(err, "reading %s", args[0])
	}
	return args[0], string(data), nil
}

func runChunk(cmd *cobra.Command, f *flags, args []string) error {
	if f.sourcemap && f.outfile == "" {
		return &config.Error{Text: "Cannot use \"--sourcemap\" without \"--outfile\""}
	}

	plugin, output, err := newPlugin(f)
	if err != nil {
		return err
	}
	path, code, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	fileName := filepath.Base(path)
	if f.outfile != "" {
		fileName = filepath.Base(f.outfile)
		output.File = fileName
	}
	result, err := plugin.RenderChunk(cmd.Context(), api.Chunk{
		FileName:       fileName,
		FacadeModuleID: f.facade,
		Code:           code,
	}, output)
	plugin.Done()
	if err != nil {
		return err
	}

	if f.outfile == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), result.Code)
		return err
	}

	text := result.Code
	if f.sourcemap && len(result.Map) > 0 {
		mapPath := f.outfile + ".map"
		if err := os.WriteFile(mapPath, result.Map, 0644); err != nil {
			return errors.Wrapf(err, "writing %s", mapPath)
		}
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		text += "//# sourceMappingURL=" + filepath.Base(mapPath) + "\n"
	}
	if err := os.WriteFile(f.outfile, []byte(text), 0644); err != nil {
		return errors.Wrapf(err, "writing %s", f.outfile)
	}
	return nil
}

func runModule(cmd *cobra.Command, f *flags, args []string) error {
	plugin, _, err := newPlugin(f)
	if err != nil {
		return err
	}
	path, code, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	result, err := plugin.TransformModule(cmd.Context(), path, code)
	plugin.DebugNames()
	plugin.Done()
	if err != nil {
		return err
	}
	_, err = io.WriteString(cmd.OutOrStdout(), result.Code)
	return err
}
