package cglcli

import (
	"fmt"
	"path/filepath"

	"oss.terrastruct.com/canvasglue/lib/version"
	"oss.terrastruct.com/canvasglue/lib/xmain"
)

func help(ms *xmain.State) {
	fmt.Fprintf(ms.Stdout, `%[1]s %[2]s
Usage:
  %[1]s keys [--variant=directional]
  %[1]s replay [--variant=directional] module.wasm script.txt
  %[1]s replay --dry-run script.txt
  %[1]s run [--tick=50] module.wasm
  %[1]s serve [--background=lightgrey] module.wasm

%[1]s translates canvas input into calls on a WebAssembly module's exports.

Use - to have %[1]s read the module or script from stdin.

Flags:
%[3]s

Subcommands:
  %[1]s keys - Prints the variant's key table grouped by command code
  %[1]s replay module.wasm script.txt - Dispatches the events of script.txt to the module
  %[1]s run module.wasm - Dispatches events read from stdin to the module on a live tick
  %[1]s serve module.wasm - Serves a page driving the module and reloads it on change
  %[1]s version - Prints the version

Script lines are one of:
  key <key>       a keydown with the DOM key value, e.g. key ArrowUp
  down <x> <y>    a pointer down at client coordinates x,y
  move <x> <y>    a pointer move
  wheel <delta>   a wheel scroll
  tick [n]        n render ticks, default 1
  # comment
`, filepath.Base(ms.Name), version.Version, ms.Opts.Defaults())
}
