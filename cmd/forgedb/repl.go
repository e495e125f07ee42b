package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forgedb/forgedb/internal/engine"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive SQL REPL",
	RunE:  runRepl,
}

func runRepl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(flagConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	sess, err := newSession(cfg)
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}

	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 1024), 4*1024*1024)

	var buf strings.Builder
	interactive := false
	if fi, err := os.Stdin.Stat(); err == nil {
		interactive = (fi.Mode() & os.ModeCharDevice) != 0
	}
	if interactive {
		fmt.Println("forgedb REPL. End a statement with ';'. Ctrl-D to exit.")
	}

	for {
		if interactive {
			if buf.Len() == 0 {
				fmt.Print("sql> ")
			} else {
				fmt.Print(" ... ")
			}
		}
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		buf.WriteString(line)
		buf.WriteByte(' ')
		if !strings.HasSuffix(line, ";") {
			continue
		}
		stmt := strings.TrimSuffix(strings.TrimSpace(buf.String()), ";")
		buf.Reset()
		if stmt == "" {
			continue
		}
		res := sess.Execute(stmt)
		printResult(res)
		if res.Ok && res.Message == "EXIT" {
			break
		}
	}
	return saveSession(sess, cfg)
}

func printResult(res *engine.QueryResult) {
	if !res.Ok {
		fmt.Println("ERR:", res.Message)
		return
	}
	if res.Headers == nil {
		fmt.Println(res.Message)
		return
	}
	fmt.Println(strings.Join(res.Headers, "\t"))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
}
