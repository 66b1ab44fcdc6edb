package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	CompilerClosure  = "closure"
	CompilerEsbuild  = "esbuild"
	CompilerMinify   = "minify"
	CompilerIdentity = "identity"
)

// Env is the part of the configuration that comes from the environment
// rather than from the bundler
type Env struct {
	// Which compiler backend to run
	Compiler string

	// A native Closure Compiler binary. When empty, "java -jar" is used.
	ClosureBin string
	Java       string
	ClosureJar string

	// When set, the transform log of every unit is written here
	DebugDir string

	LogLevel string
}

// FromEnv loads ".env" (or the given files) into the process environment
// without overriding variables that are already set, then reads the
// "ESCLOSURE_" variables. Missing files are not an error.
func FromEnv(files ...string) (Env, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Env{}, err
	}

	env := Env{
		Compiler:   firstNonEmpty(strings.TrimSpace(os.Getenv("ESCLOSURE_COMPILER")), CompilerClosure),
		ClosureBin: strings.TrimSpace(os.Getenv("ESCLOSURE_CLOSURE_BIN")),
		Java:       firstNonEmpty(strings.TrimSpace(os.Getenv("ESCLOSURE_JAVA")), "java"),
		ClosureJar: strings.TrimSpace(os.Getenv("ESCLOSURE_CLOSURE_JAR")),
		DebugDir:   strings.TrimSpace(os.Getenv("ESCLOSURE_DEBUG_DIR")),
		LogLevel:   firstNonEmpty(strings.TrimSpace(os.Getenv("ESCLOSURE_LOG_LEVEL")), "warning"),
	}

	switch env.Compiler {
	case CompilerClosure, CompilerEsbuild, CompilerMinify, CompilerIdentity:
	default:
		return Env{}, &Error{Text: "Invalid value for ESCLOSURE_COMPILER: " + quote(env.Compiler)}
	}
	return env, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
