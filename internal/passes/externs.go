package passes

import (
	"github.com/evanw/esclosure/internal/config"
)

const externOverview = `/**
* @fileoverview Externs built via derived configuration from Rollup or input code.
* @externs
*/
`

const cjsExtern = `/**
* @fileoverview Externs built via derived configuration from Rollup or input code.
* This extern contains the cjs typing info for modules.
* @externs
*/

/**
* @typedef {{
*   __esModule: boolean,
* }}
*/
var exports;`

// A CommonJS chunk marks itself with "exports.__esModule", which the
// compiler would otherwise treat as an unknown property
type CJSChunk struct {
	noopChunk
	output config.OutputOptions
}

func (p *CJSChunk) Name() string { return "CJSChunk" }

func (p *CJSChunk) Extern() (string, bool) {
	if p.output.Format == config.FormatCommonJS {
		return cjsExtern, true
	}
	return "", false
}

// The global an "iife" chunk assigns to must keep its name
type IIFEChunk struct {
	noopChunk
	output config.OutputOptions
}

func (p *IIFEChunk) Name() string { return "IIFEChunk" }

func (p *IIFEChunk) Extern() (string, bool) {
	if p.output.Format == config.FormatIIFE && p.output.Name != "" {
		return externOverview + "function " + p.output.Name + "(){};\n", true
	}
	return "", false
}
