package config

var (
	ErrWarningsLanguageOutUnspecified = &Error{Text: "Providing the warning_level=VERBOSE compile option also requires a valid language_out compile option."}
	ErrWarningsLanguageOutInvalid     = &Error{Text: "Providing the warning_level=VERBOSE and language_out=NO_TRANSPILE compile options will remove warnings."}
)

// Validate rejects option combinations that would silently produce
// unexpected output
func Validate(options CompileOptions) error {
	if level, ok := options.Get("warning_level"); ok && level == "VERBOSE" {
		languageOut, ok := options.Get("language_out")
		if !ok {
			return ErrWarningsLanguageOutUnspecified
		}
		if languageOut == "NO_TRANSPILE" {
			return ErrWarningsLanguageOutInvalid
		}
	}
	return nil
}

// NormalizeExterns returns the user's extern paths and a copy of "options"
// without them and without any plugin-only flags. A boolean "externs"
// value names no files.
func NormalizeExterns(options CompileOptions) ([]string, CompileOptions) {
	options = options.Clone()

	var externs []string
	for _, value := range options["externs"] {
		if value != "true" && value != "false" {
			externs = append(externs, value)
		}
	}
	delete(options, "externs")

	for _, key := range pluginOnlyOptions {
		delete(options, key)
	}
	return externs, options
}

// Defaults are the options a user can override. Code handed over by a
// bundler is usually transpiled already, so nothing is transpiled by
// default. Code that will live in an ES module can be minified more
// aggressively since it has its own function wrapper.
func Defaults(output OutputOptions, externs []string) CompileOptions {
	options := CompileOptions{
		"language_out":            {"NO_TRANSPILE"},
		"assume_function_wrapper": {"false"},
		"warning_level":           {"QUIET"},
		"module_resolution":       {"NODE"},
	}
	if output.IsESMFormat() {
		options.Set("assume_function_wrapper", "true")
	}
	if len(externs) > 0 {
		options.Set("externs", externs...)
	}
	return options
}

// Final merges the user's options over the defaults. The input file and the
// source map file always come last so that no user option can replace them.
func Final(user CompileOptions, output OutputOptions, transformExterns []string, jsPath string, mapPath string) CompileOptions {
	externs, user := NormalizeExterns(user)
	options := Defaults(output, append(append([]string{}, transformExterns...), externs...))
	for key, values := range user {
		options.Set(key, values...)
	}
	options.Set("js", jsPath)
	options.Set("create_source_map", mapPath)
	return options
}
