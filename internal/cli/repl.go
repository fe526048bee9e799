package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

type execIface interface {
	connected() bool
	Connect(ctx context.Context, path string) error
	Disconnect(ctx context.Context) error
	SetCreator(ctx context.Context, creator string) error
	SetAmount(ctx context.Context, amount string) error
	Initialize(ctx context.Context) error
	Tip(ctx context.Context) error
	Withdraw(ctx context.Context) error
	Vault(ctx context.Context, authority string) error
	Status(ctx context.Context) error
}

// Run drives the REPL over in. The prompt is only printed when in is a
// terminal so that piped scripts produce clean output.
func Run(ctx context.Context, a *App, in io.Reader) {
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	runREPL(ctx, a, interactive, bufio.NewScanner(in))
}

// runREPL reads one command per line and dispatches it. Handler errors are
// already reported to the user by the handlers and do not stop the loop.
//
//	help               show available commands
//	connect <keypair>  attach a solana-keygen keypair
//	disconnect         detach the wallet
//	creator <pubkey>   set the creator to tip
//	amount <sol>       set the amount for tip and withdraw
//	initialize         create the wallet's vault
//	tip                tip the creator
//	withdraw           withdraw from the wallet's vault
//	vault [pubkey]     show a vault
//	status             show the shell state
//	exit | quit        leave
func runREPL(ctx context.Context, a execIface, interactive bool, scanner *bufio.Scanner) {
	for {
		if interactive {
			prompt := "tipjar (disconnected)> "
			if a.connected() {
				prompt = "tipjar> "
			}
			fmt.Print(prompt)
		}
		if ctx.Err() != nil || !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, arg := parts[0], ""
		if len(parts) > 1 {
			arg = strings.Join(parts[1:], " ")
		}

		switch cmd {
		case "help":
			printlnFn("Available commands: connect <keypair>, disconnect, creator <pubkey>, amount <sol>, initialize, tip, withdraw, vault [pubkey], status, exit")

		case "connect":
			_ = a.Connect(ctx, arg)

		case "disconnect":
			_ = a.Disconnect(ctx)

		case "creator":
			_ = a.SetCreator(ctx, arg)

		case "amount":
			_ = a.SetAmount(ctx, arg)

		case "initialize", "init":
			_ = a.Initialize(ctx)

		case "tip":
			_ = a.Tip(ctx)

		case "withdraw":
			_ = a.Withdraw(ctx)

		case "vault":
			_ = a.Vault(ctx, arg)

		case "status":
			_ = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
