package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var flagExecSQL string

var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Execute one SQL statement and print its result",
	RunE:  runExec,
}

func init() {
	execCmd.Flags().StringVar(&flagExecSQL, "sql", "", "SQL statement to run (reads stdin if omitted)")
}

func runExec(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(flagConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	sql := flagExecSQL
	if sql == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		sql = string(data)
	}

	sess, err := newSession(cfg)
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}
	res := sess.Execute(sql)
	printResult(res)
	if !res.Ok {
		return fmt.Errorf("%s", res.Message)
	}
	return saveSession(sess, cfg)
}
