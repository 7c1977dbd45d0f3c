package main

import (
	"fmt"
	"strings"

	"github.com/park285/doljabi-session/internal/presenter"
	"github.com/park285/doljabi-session/internal/room"
)

func helpText() string {
	return strings.Join([]string{
		"• start                 대국 시작 요청",
		"• place <좌표>          착수 (예: place A4, place 에이사)",
		"• select <좌표> / confirm  선택 후 확정",
		"• say <발화>            음성 입력 좌표로 착수 (예: say 3행5열)",
		"• pass | resign | draw | draw yes | draw no",
		"• sync | board | clock | help | quit",
	}, "\n")
}

// handleCommand runs one input line and reports whether the client should exit.
func handleCommand(rm *room.Room, pr *presenter.Presenter, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch strings.ToLower(cmd) {
	case "quit", "exit":
		return true
	case "help":
		fmt.Println(helpText())
	case "board":
		err = pr.Screen(rm.View())
	case "start":
		err = rm.RequestStart()
	case "place", "say":
		_, err = rm.Say(arg)
	case "select":
		err = rm.SelectUtterance(arg)
	case "confirm":
		err = rm.PlaceSelection()
	case "pass":
		err = rm.Pass()
	case "resign":
		err = rm.Resign()
	case "draw":
		if arg == "" {
			err = rm.OfferDraw()
			break
		}
		accept, ok := parseDrawReply(arg)
		if !ok {
			fmt.Printf("알 수 없는 응답입니다: %q (draw yes / draw no)\n", arg)
			break
		}
		err = rm.RespondDraw(accept)
	case "clock":
		err = pr.Clocks(rm.View())
	case "sync":
		err = rm.RequestTimeSync()
	default:
		// bare coordinates are placements
		arg = line
		_, err = rm.Say(line)
	}
	if err != nil {
		_ = pr.Reject(err, arg)
	}
	return false
}

// parseDrawReply reads the answer to a draw offer. Anything it does not
// recognise is reported as not ok so a typo never declines the offer.
func parseDrawReply(arg string) (accept, ok bool) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "yes", "y", "수락":
		return true, true
	case "no", "n", "거절":
		return false, true
	default:
		return false, false
	}
}
