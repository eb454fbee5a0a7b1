// Warden CLI — инструмент командной строки для управления очередью
// работы и расписаниями. Работает с хранилищем напрямую.
//
// Использование:
//
//	warden [--db-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	work      Отправка и просмотр work items
//	schedule  Управление расписаниями
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jacksund/warden/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var dbURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "warden",
		Short:         "Warden CLI — work queue and schedule management",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "Postgres connection string (default: $DB_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }
	dbURLFn := func() string { return dbURL }
	deps := cli.NewDeps(outputFn, dbURLFn)
	defer deps.Close()

	rootCmd.AddCommand(
		cli.NewWorkCmd(deps),
		cli.NewScheduleCmd(deps),
	)

	// Ctrl-C прерывает блокирующие команды (watch, submit --wait).
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		deps.Close()
		os.Exit(1)
	}
}
