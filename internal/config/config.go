package config

import (
	"sort"
	"strings"

	"github.com/evanw/esclosure/internal/exitcode"
)

type Format uint8

const (
	FormatUnknown Format = iota

	// IIFE stands for immediately-invoked function expression. If the
	// optional Name is configured, the wrapper is assigned to it:
	//
	//   var name = (function () {
	//     ... bundled code ...
	//     return exports;
	//   })();
	//
	FormatIIFE

	// The CommonJS format looks like this:
	//
	//   ... bundled code ...
	//   exports.foo = foo;
	//
	FormatCommonJS

	// The ES module format looks like this:
	//
	//   ... bundled code ...
	//   export {...};
	//
	FormatESModule

	FormatAMD
	FormatUMD
	FormatSystem
)

var formatNames = map[string]Format{
	"iife":     FormatIIFE,
	"cjs":      FormatCommonJS,
	"commonjs": FormatCommonJS,
	"es":       FormatESModule,
	"esm":      FormatESModule,
	"module":   FormatESModule,
	"amd":      FormatAMD,
	"umd":      FormatUMD,
	"system":   FormatSystem,
	"systemjs": FormatSystem,
}

func ParseFormat(text string) (Format, bool) {
	format, ok := formatNames[strings.ToLower(text)]
	return format, ok
}

func (f Format) String() string {
	switch f {
	case FormatIIFE:
		return "iife"
	case FormatCommonJS:
		return "cjs"
	case FormatESModule:
		return "es"
	case FormatAMD:
		return "amd"
	case FormatUMD:
		return "umd"
	case FormatSystem:
		return "system"
	}
	return "unknown"
}

// The parts of the bundler's output configuration that change how a chunk
// is prepared for the compiler
type OutputOptions struct {
	Format Format

	// The global name of an "iife" or "umd" bundle
	Name string

	// The output file name, used for the "file" field of source maps
	File string
}

func (o OutputOptions) IsESMFormat() bool {
	return o.Format == FormatESModule
}

// CompileOptions are the compiler's own command line flags. Every key maps
// to one or more values, so "--externs=a.js --externs=b.js" is
// {"externs": {"a.js", "b.js"}}. Boolean flags use "true" and "false".
type CompileOptions map[string][]string

func (o CompileOptions) Get(key string) (string, bool) {
	if values := o[key]; len(values) > 0 {
		return values[len(values)-1], true
	}
	return "", false
}

func (o CompileOptions) Has(key string) bool {
	_, ok := o[key]
	return ok
}

func (o CompileOptions) Set(key string, values ...string) {
	o[key] = append([]string{}, values...)
}

func (o CompileOptions) Add(key string, value string) {
	o[key] = append(o[key], value)
}

func (o CompileOptions) Clone() CompileOptions {
	clone := make(CompileOptions, len(o))
	for key, values := range o {
		clone[key] = append([]string{}, values...)
	}
	return clone
}

func (o CompileOptions) Keys() []string {
	keys := make([]string, 0, len(o))
	for key := range o {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Args returns the flags as command line arguments in sorted key order. A
// "true" boolean is passed as the bare flag.
func (o CompileOptions) Args() []string {
	var args []string
	for _, key := range o.Keys() {
		for _, value := range o[key] {
			if value == "true" {
				args = append(args, "--"+key)
			} else {
				args = append(args, "--"+key+"="+value)
			}
		}
	}
	return args
}

// ParseFlag splits "key=value" as given on the command line. A flag without
// a value is a "true" boolean.
func ParseFlag(text string) (string, string, error) {
	text = strings.TrimPrefix(text, "--")
	key, value, ok := strings.Cut(text, "=")
	if key == "" {
		return "", "", &Error{Text: "Invalid compile option " + quote(text) + ": expected key=value"}
	}
	if !ok {
		value = "true"
	}
	return key, value, nil
}

// Options that only configure this tool. They are never passed to the
// compiler.
type PluginOptions struct {
	// Remove a leading "'use strict';" directive from non-ESM chunks too
	RemoveStrictDirective bool

	Platform string
}

var pluginOnlyOptions = []string{"remove_strict_directive", "platform"}

// PluckPluginOptions reads the plugin-only flags out of "options" without
// modifying it.
func PluckPluginOptions(options CompileOptions) PluginOptions {
	var plugin PluginOptions
	if value, ok := options.Get("remove_strict_directive"); ok {
		plugin.RemoveStrictDirective = value != "false"
	}
	if value, ok := options.Get("platform"); ok {
		plugin.Platform = value
	}
	return plugin
}

type Error struct {
	Text string
}

func (e *Error) Error() string {
	return e.Text
}

func (e *Error) ExitCode() int {
	return exitcode.Usage
}

func quote(text string) string {
	return "\"" + text + "\""
}
