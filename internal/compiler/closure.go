package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/evanw/esclosure/internal/config"
	"github.com/evanw/esclosure/internal/sourcemap"
	"github.com/pkg/errors"
)

const closureName = "Google Closure Compiler"

// Closure runs Google Closure Compiler as a separate process, either a
// native binary or the jar through "java -jar". The code and the externs are
// written to a temporary directory that only exists for one call.
type Closure struct {
	Bin  string
	Java string
	Jar  string

	// Where the temporary directory is created. The system default when
	// empty.
	TempDir string
}

func (c *Closure) Name() string { return "closure" }

// The "platform" option picks between the native binary and the jar when
// both are configured. The native binary is preferred otherwise.
func (c *Closure) command(platform string) (string, []string, error) {
	native := func() (string, []string, bool) {
		return c.Bin, nil, c.Bin != ""
	}
	java := func() (string, []string, bool) {
		javaPath := c.Java
		if javaPath == "" {
			javaPath = "java"
		}
		return javaPath, []string{"-jar", c.Jar}, c.Jar != ""
	}

	order := []func() (string, []string, bool){native, java}
	if platform == "java" {
		order = []func() (string, []string, bool){java, native}
	}
	for _, candidate := range order {
		if name, args, ok := candidate(); ok {
			return name, args, nil
		}
	}
	return "", nil, &config.Error{Text: "No Closure Compiler is configured: set ESCLOSURE_CLOSURE_BIN or ESCLOSURE_CLOSURE_JAR"}
}

func (c *Closure) Compile(ctx context.Context, input Input) (Output, error) {
	plugin := config.PluckPluginOptions(input.Options)
	name, args, err := c.command(plugin.Platform)
	if err != nil {
		return Output{}, err
	}

	dir, err := os.MkdirTemp(c.TempDir, "esclosure-")
	if err != nil {
		return Output{}, errors.Wrap(err, "creating a temporary directory for the compiler")
	}
	defer os.RemoveAll(dir)

	jsPath := filepath.Join(dir, "input.js")
	if err := os.WriteFile(jsPath, []byte(input.Code), 0644); err != nil {
		return Output{}, errors.Wrapf(err, "writing %s", jsPath)
	}
	externPaths := make([]string, 0, len(input.Externs))
	for i, extern := range input.Externs {
		path := filepath.Join(dir, fmt.Sprintf("extern-%d.js", i))
		if err := os.WriteFile(path, []byte(extern), 0644); err != nil {
			return Output{}, errors.Wrapf(err, "writing %s", path)
		}
		externPaths = append(externPaths, path)
	}
	mapPath := filepath.Join(dir, "output.js.map")

	options := config.Final(input.Options, input.Output, externPaths, jsPath, mapPath)
	cmd := exec.CommandContext(ctx, name, append(args, options.Args()...)...)
	stdout := bytes.Buffer{}
	stderr := bytes.Buffer{}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Output{}, &Error{Compiler: closureName, ExitStatus: exitErr.ExitCode(), Diagnostics: stderr.String()}
		}
		return Output{}, errors.Wrapf(err, "running %s", name)
	}

	if level, _ := options.Get("warning_level"); level == "VERBOSE" && stderr.Len() > 0 {
		return Output{}, &Error{Compiler: closureName, Diagnostics: stderr.String()}
	}

	data, err := os.ReadFile(mapPath)
	if err != nil {
		return Output{}, errors.Wrap(err, "reading the source map written by the compiler")
	}
	sm, err := sourcemap.Decode(data)
	if err != nil {
		return Output{}, errors.Wrap(err, "decoding the source map written by the compiler")
	}

	return Output{Code: stdout.String(), Map: sm, Diagnostics: stderr.String()}, nil
}
