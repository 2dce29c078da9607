package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/restock-engine/internal/pipeline"
)

// CommandType names an operator command accepted by Execute.
type CommandType string

const (
	CommandRunCycle   CommandType = "run_cycle"
	CommandStatus     CommandType = "status"
	CommandExplainSKU CommandType = "explain_sku"
)

// ErrInvalidCommand is returned for unknown or malformed commands.
var ErrInvalidCommand = errors.New("invalid command")

// Command is a tagged union; SKU is only meaningful for explain_sku.
type Command struct {
	Type CommandType `json:"type"`
	SKU  string      `json:"sku,omitempty"`
}

// CommandResult carries exactly one payload matching the command type.
type CommandResult struct {
	Type        CommandType           `json:"type"`
	Cycle       *pipeline.CycleResult `json:"cycle,omitempty"`
	Status      *StatusReport         `json:"status,omitempty"`
	Explanation *Explanation          `json:"explanation,omitempty"`
}

func (c Command) Validate() error {
	switch c.Type {
	case CommandRunCycle, CommandStatus:
		return nil
	case CommandExplainSKU:
		if strings.TrimSpace(c.SKU) == "" {
			return fmt.Errorf("%w: explain_sku requires a sku", ErrInvalidCommand)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCommand, c.Type)
	}
}

// Execute dispatches cmd. A failed cycle still returns its result next to
// the error.
func (s *ReplenishmentService) Execute(ctx context.Context, cmd Command) (*CommandResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	out := &CommandResult{Type: cmd.Type}
	switch cmd.Type {
	case CommandRunCycle:
		res, err := s.RunCycle(ctx)
		out.Cycle = res
		if err != nil {
			return out, err
		}
	case CommandStatus:
		report := s.Status(ctx)
		out.Status = &report
	case CommandExplainSKU:
		exp, err := s.Explain(ctx, strings.TrimSpace(cmd.SKU))
		if err != nil {
			return nil, err
		}
		out.Explanation = exp
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidCommand, cmd.Type)
	}
	return out, nil
}
