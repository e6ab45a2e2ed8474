// Package main 是推荐引擎的命令行入口：导入数据，按策略查询推荐结果。
//
//	contentrec --config contentrec.yaml seed fixtures.json
//	contentrec --config contentrec.yaml similar A --limit 5
//	contentrec for-user u1 --exclude B
//	contentrec trending --window day
//
// 所有命令默认输出 JSON，--human 输出可读表格。
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version 在构建时通过 ldflags 设置
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "contentrec",
		Short: "Content recommendation engine",
		Long: `contentrec serves content-based, personalized and trending recommendations
over a content catalog and an interaction event log.

The store backend (memory, redis or sqlite) comes from the config file and
CONTENTREC_* environment variables. With the memory backend, pass --fixtures
to load data before the command runs.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (YAML or JSON)")
	root.PersistentFlags().StringVar(&a.fixtures, "fixtures", "", "JSON fixtures loaded before the command runs")
	root.PersistentFlags().BoolVar(&a.human, "human", false, "Use human-readable output instead of JSON")

	root.AddCommand(
		newSeedCmd(a),
		newSimilarCmd(a),
		newForUserCmd(a),
		newTrendingCmd(a),
		newRecommendCmd(a),
		newStatsCmd(a),
	)
	return root
}
