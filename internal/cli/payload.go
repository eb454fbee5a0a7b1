package cli

import (
	"encoding/json"
	"fmt"

	"github.com/jacksund/warden/internal/domain"
	"github.com/spf13/cobra"
)

// payloadFlags — флаги, описывающие отправляемую работу.
// Общие для work submit и schedule create.
type payloadFlags struct {
	fn   string
	args string

	command        string
	dir            string
	requiredFiles  []string
	handlers       []string
	monitorFreq    int
	pollIntervalMS int
	maxCorrections int
	okExitCodes    []int
}

// addPayloadFlags регистрирует флаги payload на команде.
func addPayloadFlags(cmd *cobra.Command, f *payloadFlags) {
	cmd.Flags().StringVar(&f.fn, "fn", "", "Registered function name")
	cmd.Flags().StringVar(&f.args, "args", "", "Function arguments as JSON")

	cmd.Flags().StringVar(&f.command, "command", "", "Shell command for a supervised process")
	cmd.Flags().StringVar(&f.dir, "dir", "", "Working directory for the process")
	cmd.Flags().StringSliceVar(&f.requiredFiles, "required-file", nil, "File that must exist before start (repeatable)")
	cmd.Flags().StringSliceVar(&f.handlers, "handler", nil, "Error handler name, in priority order (repeatable)")
	cmd.Flags().IntVar(&f.monitorFreq, "monitor-freq", 0, "Run monitors every N-th poll (0 = default)")
	cmd.Flags().IntVar(&f.pollIntervalMS, "poll-interval-ms", 0, "Process poll interval in milliseconds (0 = default)")
	cmd.Flags().IntVar(&f.maxCorrections, "max-corrections", 0, "Correction cap per run (0 = default)")
	cmd.Flags().IntSliceVar(&f.okExitCodes, "ok-exit-code", nil, "Extra exit code treated as success (repeatable)")
}

// build собирает domain.Payload из флагов.
func (f *payloadFlags) build() (domain.Payload, error) {
	switch {
	case f.fn != "" && f.command != "":
		return domain.Payload{}, fmt.Errorf("--fn and --command are mutually exclusive")

	case f.fn != "":
		var raw json.RawMessage
		if f.args != "" {
			if !json.Valid([]byte(f.args)) {
				return domain.Payload{}, fmt.Errorf("--args is not valid JSON")
			}
			raw = json.RawMessage(f.args)
		}
		payload := domain.Payload{
			Kind:     domain.PayloadKindFunction,
			Function: &domain.FunctionCall{Name: f.fn, Args: raw},
		}
		return payload, payload.Validate()

	case f.command != "":
		if f.dir == "" {
			return domain.Payload{}, fmt.Errorf("--dir is required with --command")
		}
		payload := domain.NewProcessPayload(domain.ProcessSpec{
			Command:        f.command,
			Directory:      f.dir,
			RequiredFiles:  f.requiredFiles,
			Handlers:       f.handlers,
			MonitorFreq:    f.monitorFreq,
			PollIntervalMS: f.pollIntervalMS,
			MaxCorrections: f.maxCorrections,
			OKExitCodes:    f.okExitCodes,
		})
		return payload, payload.Validate()

	default:
		return domain.Payload{}, fmt.Errorf("either --fn or --command is required")
	}
}
