package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/RecoveryAshes/nicheharvest/internal/affiliate"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var programsCmd = &cobra.Command{
	Use:   "programs [niche]",
	Short: "列出各细分领域的联盟计划",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := affiliate.NewRegistryFromConfig(appConfig.Affiliate)

		if len(args) == 1 {
			name, programs, ok := registry.Lookup(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("未找到领域: %s", args[0])
			}
			renderPrograms(cmd.OutOrStdout(), map[string][]string{name: programs})
			return nil
		}

		programs := registry.Programs(cmd.Context())
		if len(programs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "没有可用的联盟计划数据")
			return nil
		}
		renderPrograms(cmd.OutOrStdout(), programs)
		return nil
	},
}

// renderPrograms 按领域名称排序输出
func renderPrograms(w io.Writer, programs map[string][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"领域", "联盟计划"})
	for _, niche := range affiliate.SortedNiches(programs) {
		t.AppendRow(table.Row{niche, strings.Join(programs[niche], ", ")})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
