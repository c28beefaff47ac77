package main

import (
	"oss.terrastruct.com/canvasglue/cglcli"
	"oss.terrastruct.com/canvasglue/lib/xmain"
)

func main() {
	xmain.Main(cglcli.Run)
}
