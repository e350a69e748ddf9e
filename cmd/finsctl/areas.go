package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	omronfins "github.com/TaishiUeda/OmronFinsEthernet"
)

func newAreasCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "areas",
		Short: "List memory areas and element types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := g.output(cmd)
			if err != nil {
				return err
			}
			return printAreas(out)
		},
	}
}

type areaEntry struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	ElementSize int    `json:"element_size"`
}

type typeEntry struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

func printAreas(out output) error {
	infos := omronfins.MemoryAreas()
	areas := make([]areaEntry, 0, len(infos))
	for _, info := range infos {
		areas = append(areas, areaEntry{
			Name:        info.Name,
			Code:        fmt.Sprintf("0x%02X", byte(info.Code)),
			ElementSize: info.ElementSize,
		})
	}
	types := make([]typeEntry, 0)
	for _, t := range omronfins.ElementTypes() {
		types = append(types, typeEntry{Name: t.String(), Size: t.Size()})
	}

	if out.mode == outputJSON {
		return out.encode(out.stdout, struct {
			Areas []areaEntry `json:"areas"`
			Types []typeEntry `json:"types"`
		}{areas, types})
	}

	tw := tabwriter.NewWriter(out.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AREA\tCODE\tBYTES")
	for _, a := range areas {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", a.Name, a.Code, a.ElementSize)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "TYPE\tBYTES")
	for _, t := range types {
		fmt.Fprintf(tw, "%s\t%d\n", t.Name, t.Size)
	}
	return tw.Flush()
}
