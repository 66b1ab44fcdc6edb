//go:build !darwin && !linux
// +build !darwin,!linux

package logger

import (
	"os"
	"regexp"
)

const SupportsColorEscapes = false

func GetTerminalInfo(*os.File) TerminalInfo {
	return TerminalInfo{}
}

var colorEscapes = regexp.MustCompile("\033\\[[0-9;]*m")

func writeStringWithColor(file *os.File, text string) {
	file.WriteString(colorEscapes.ReplaceAllString(text, ""))
}
