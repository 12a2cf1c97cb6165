package cmd

import (
	"fmt"
	"os"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vhavlena/veritla/pkg/checker"
	"github.com/vhavlena/veritla/pkg/config"
	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/smt"
)

// checkCmd runs bounded checking over a YAML run configuration.
var checkCmd = &cobra.Command{
	Use:   "check [config]",
	Short: "Run bounded checking over a configuration file.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dry, _ := cmd.Flags().GetBool("dry-run")
		if err := runCheck(args[0], dry); err != nil {
			log.Errorf("check failed: %v", err)
			os.Exit(1)
		}
	},
}

func init() {
	checkCmd.Flags().Bool("dry-run", false, "record constraints without solving")
	rootCmd.AddCommand(checkCmd)
}

// runCheck loads the configuration, builds the checker, and reports the
// outcome.
func runCheck(path string, dry bool) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	varTypes, err := cfg.VarTypes()
	if err != nil {
		return err
	}

	ids := ir.NewIdGen()
	initEx, err := cfg.InitExpr(ids)
	if err != nil {
		return err
	}
	nextEx, err := cfg.NextExpr(ids)
	if err != nil {
		return err
	}
	inv, err := cfg.InvariantExpr(ids)
	if err != nil {
		return err
	}

	for _, ex := range []*ir.Expr{initEx, nextEx, inv} {
		if ex == nil {
			continue
		}
		for name := range ir.FreeNames(ex) {
			if _, ok := varTypes[name]; !ok {
				log.Warnf("formula refers to undeclared name %s", name)
			}
		}
	}

	var gw smt.Gateway
	var recorder *smt.RecordingGateway
	if dry {
		recorder = smt.NewRecordingGateway()
		gw = recorder
	} else {
		z3gw := smt.NewZ3Gateway()
		defer z3gw.Close()
		gw = z3gw
	}

	chk, err := checker.New(gw, ids, varTypes, cfg.VarNames())
	if err != nil {
		return err
	}
	outcome, trace, err := chk.Run(initEx, nextEx, inv, cfg.Bound)
	if err != nil {
		return err
	}

	fmt.Printf("result: %s\n", outcome)
	for i, state := range trace {
		fmt.Printf("state %d:\n", i)
		names := make([]string, 0, len(state))
		for name := range state {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s = %s\n", name, state[name].Render())
		}
	}

	if recorder != nil && cfg.DumpSmt != "" {
		if err := os.WriteFile(cfg.DumpSmt, []byte(recorder.Dump()), 0o644); err != nil {
			return err
		}
		log.Infof("SMT-LIB dump written to %s", cfg.DumpSmt)
	}
	return nil
}
