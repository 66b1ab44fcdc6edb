package compiler

import (
	"context"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/evanw/esclosure/internal/sourcemap"
	"github.com/pkg/errors"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"
)

// Esbuild minifies with esbuild's transform API. Externs are ignored since
// esbuild never removes assignments to globals in the first place.
type Esbuild struct{}

func (Esbuild) Name() string { return "esbuild" }

func (Esbuild) Compile(ctx context.Context, input Input) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	result := api.Transform(input.Code, api.TransformOptions{
		Sourcefile:        input.FileName,
		Sourcemap:         api.SourceMapExternal,
		Loader:            api.LoaderJS,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
	})

	warnings := strings.Join(api.FormatMessages(result.Warnings, api.FormatMessagesOptions{Kind: api.WarningMessage}), "")
	if len(result.Errors) > 0 {
		text := strings.Join(api.FormatMessages(result.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage}), "")
		return Output{}, &Error{Compiler: "esbuild", ExitStatus: 1, Diagnostics: text + warnings}
	}

	sm, err := sourcemap.Decode(result.Map)
	if err != nil {
		return Output{}, errors.Wrap(err, "decoding the source map from esbuild")
	}
	return Output{Code: string(result.Code), Map: sm, Diagnostics: warnings}, nil
}

const jsMediaType = "application/javascript"

// Minify uses tdewolff's minifier, which produces no source map. Chunks
// compiled with it have no map either.
type Minify struct{}

func (Minify) Name() string { return "minify" }

func (Minify) Compile(ctx context.Context, input Input) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	m := minify.New()
	m.AddFunc(jsMediaType, js.Minify)
	code, err := m.String(jsMediaType, input.Code)
	if err != nil {
		return Output{}, &Error{Compiler: "minify", ExitStatus: 1, Diagnostics: err.Error()}
	}
	return Output{Code: code}, nil
}
