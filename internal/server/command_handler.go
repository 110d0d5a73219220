package server

import (
	"encoding/json"
	"fmt"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) workspaceExecuteCommand(
	ctx *glsp.Context,
	params *protocol.ExecuteCommandParams,
) (any, error) {
	s.setClient(ctx)
	switch params.Command {
	case cmdBlocks:
		var p blocksParams
		if err := decodeArgs(params.Arguments, &p); err != nil {
			return nil, err
		}
		return s.cmdListBlocks(p)
	case cmdEditEnter:
		var p enterParams
		if err := decodeArgs(params.Arguments, &p); err != nil {
			return nil, err
		}
		return s.cmdEditEnter(p)
	case cmdEditApply:
		var p applyParams
		if err := decodeArgs(params.Arguments, &p); err != nil {
			return nil, err
		}
		return s.cmdEditApply(p)
	case cmdEditExit:
		var p exitParams
		if err := decodeArgs(params.Arguments, &p); err != nil {
			return nil, err
		}
		return s.cmdEditExit(p)
	case cmdRescan:
		return s.cmdRescan()
	default:
		return nil, fmt.Errorf("unknown command %q", params.Command)
	}
}

// decodeArgs unpacks the single JSON object argument every weft command
// takes.
func decodeArgs(args []any, v any) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command argument")
	}
	raw, err := json.Marshal(args[0])
	if err != nil {
		return fmt.Errorf("malformed command argument: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("malformed command argument: %w", err)
	}
	return nil
}
