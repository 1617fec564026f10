package handlers

import (
	"strconv"
	"strings"

	"game-match-system/services"
)

// parseCommand turns an inbound text frame into a typed command. The wire
// format is "<op>" or "<op> <cell>": 0 play, 1 hover, 2 unhover, 3 turn
// player, 4 game state, 5 timers, 6 resign. A non-empty second return value
// is the protocol error to answer locally; the command never reaches the
// session in that case.
func parseCommand(raw string) (services.ClientCommand, string) {
	var zero services.ClientCommand
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return zero, "Non existent command"
	}
	op, err := strconv.Atoi(fields[0])
	if err != nil || op < int(services.OpPlay) || op > int(services.OpResign) {
		return zero, "Non existent command"
	}
	if op <= int(services.OpUnhover) {
		// cell-addressed commands
		if len(fields) < 2 {
			return zero, "Too few arguments for this command"
		}
		if len(fields) > 2 {
			return zero, "Too many arguments for this command"
		}
		cell, err := strconv.Atoi(fields[1])
		if err != nil || cell < 0 || cell > 8 {
			return zero, "Non existent board space"
		}
		return services.ClientCommand{Op: services.CommandOp(op), Cell: cell}, ""
	}
	if len(fields) > 1 {
		return zero, "Too many arguments for this command"
	}
	return services.ClientCommand{Op: services.CommandOp(op)}, ""
}
