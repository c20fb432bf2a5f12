package ingest

import (
	"strings"

	"github.com/cablehead/stacks/cmn"
	"github.com/cablehead/stacks/contentmeta"
	"github.com/cablehead/stacks/engine"
	"github.com/cablehead/stacks/packetlog"
)

// shellContentType is what a command line itself gets retyped to once its
// producing process has exited.
const shellContentType = "Shell"

// CommandResult carries everything a piped-command run produced, for the
// caller to relay back to the UI once FinishCommand returns.
type CommandResult struct {
	Stream  packetlog.Packet // the finalized stdout item
	Stderr  *packetlog.Packet
	Command packetlog.Packet
}

// BeginCommand starts the three-part piped-command ingest pattern: an
// ephemeral stdout stream the caller feeds via the returned
// *InProgressStream, with the raw command line and its extension-inferred
// content type already resolved. A trailing "| .ext" pipeline segment
// forces the stdout item's content type and is stripped from what gets
// recorded as the command line (contentmeta.InferFromPipelineSuffix).
func BeginCommand(rawCommand string, stackID *cmn.ID) (*InProgressStream, string) {
	command, contentType, ok := contentmeta.InferFromPipelineSuffix(rawCommand)
	if !ok {
		command = rawCommand
	}
	var ctPtr *string
	if ok {
		ctPtr = &contentType
	}
	return Begin(contentmeta.TextPlain, ctPtr, stackID), command
}

// FinishCommand finalizes the stdout stream, adds stderr directly if
// non-empty, and adds the command line itself retyped to "Shell", the
// three-part pattern a piped shell command needs on top of the core
// streaming protocol. FinishCommand commits every packet it returns itself,
// through e's Core API, so the content-type retype lands in the same log as
// the add.
func FinishCommand(e *engine.Engine, stream *InProgressStream, command string, stderr []byte, stackID *cmn.ID) (CommandResult, error) {
	var result CommandResult

	finalized, err := stream.Finalize(e.Store)
	if err != nil {
		return result, err
	}
	finalized, err = e.Commit(finalized)
	if err != nil {
		return result, err
	}
	result.Stream = finalized

	if trimmed := strings.TrimSpace(string(stderr)); trimmed != "" {
		p, err := e.Add(stderr, contentmeta.TextPlain, stackID)
		if err != nil {
			return result, err
		}
		result.Stderr = &p
	}

	cmdPacket, err := e.Add([]byte(command), contentmeta.TextPlain, stackID)
	if err != nil {
		return result, err
	}
	if cmdPacket.Hash != nil {
		if _, err := e.UpdateContentType(*cmdPacket.Hash, shellContentType); err != nil {
			return result, err
		}
	}
	result.Command = cmdPacket
	return result, nil
}
