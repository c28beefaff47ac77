package cglcli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"oss.terrastruct.com/canvasglue/lib/xmain"
)

func keysCmd(ctx context.Context, ms *xmain.State, f flags, args []string) error {
	if len(args) > 0 {
		return xmain.UsageErrorf("keys subcommand accepts no arguments")
	}
	v, err := loadVariant(ms, f)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(ms.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "variant\t%s\n", v.Name)
	ticks := make([]string, len(v.Tick))
	for i, op := range v.Tick {
		ticks[i] = string(op)
	}
	fmt.Fprintf(tw, "tick\t%s\n", strings.Join(ticks, ", "))
	fmt.Fprintf(tw, "pointer\t%t\n", v.Pointer)
	fmt.Fprintf(tw, "wheel\t%t\n", v.Wheel)
	fmt.Fprintln(tw)
	for _, code := range v.Keys.Codes() {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", code, code, strings.Join(v.Keys.Aliases(code), " "))
	}
	return tw.Flush()
}
