package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// Run starts the interactive loop. It reads one line, takes the first token
// as the command, and dispatches. Command handlers print their own errors;
// the loop itself only exits on EOF or an explicit quit.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "kindersync (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Fprintf(a.out, "kindersync %s > ", a.promptStatus(ctx))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			fmt.Fprintln(a.out, "Available commands: status, init, sync, upload [collection], download <collection>, students, assign <staff-id> <class>..., ping, reset, notices, login, logout, configure, exit")

		case "status":
			a.Status(ctx)

		case "init":
			a.Init(ctx)

		case "sync":
			a.Sync(ctx)

		case "download":
			if len(args) == 0 {
				fmt.Fprintln(a.out, "Usage: download <collection> [date]")
				continue
			}
			a.Download(ctx, args[0], rest(args, 1))

		case "upload":
			if len(args) == 0 {
				a.UploadAll(ctx)
				continue
			}
			a.Upload(ctx, args[0], rest(args, 1))

		case "students":
			a.Students(ctx)

		case "assign":
			if len(args) < 2 {
				fmt.Fprintln(a.out, "Usage: assign <staff-id> <class>...")
				continue
			}
			a.Assign(ctx, args[0], args[1:])

		case "ping":
			a.Ping(ctx)

		case "reset":
			a.Reset(ctx)

		case "notices":
			a.Notices()

		case "login":
			a.Login(ctx)

		case "logout":
			a.Logout(ctx)

		case "configure":
			a.Configure(ctx)

		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return

		default:
			fmt.Fprintln(a.out, "Unknown command:", cmd)
		}
	}
}

func rest(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}

func (a *App) promptStatus(ctx context.Context) string {
	user, err := a.resolver.CurrentUser(ctx)
	if err != nil {
		return "(not logged in)"
	}
	return user.Name
}
