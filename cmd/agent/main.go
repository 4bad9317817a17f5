package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"screen-agent/internal/application/port/input"
	"screen-agent/internal/di"
)

func main() {
	settingsPath := flag.String("settings", "settings.yaml", "path to the settings file")
	debug := flag.Bool("debug", false, "enable debug logging")
	checkOnly := flag.Bool("check", false, "verify proposer connectivity and exit")
	flag.Parse()

	container, err := di.NewContainer(di.Config{
		SettingsPath: *settingsPath,
		Debug:        *debug,
	})
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}
	defer container.Close()

	ctx := context.Background()

	if *checkOnly {
		if err := container.Driver.Check(ctx); err != nil {
			fmt.Printf("proposer check failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("proposer reachable")
		return
	}

	fmt.Println("screen-agent console. Commands: configure, start [instructions], run [instructions], pause, resume, stop, reset, status, check, quit")
	fmt.Println("Press Esc at any time for emergency stop.")

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		cmd, rest := splitCommand(line)

		switch cmd {
		case "":
			continue

		case "configure":
			if err := container.Driver.Configure(ctx); err != nil {
				fmt.Printf("configure failed: %v\n", err)
			}

		case "start", "run":
			opts := input.RunOptions{
				// "start" runs a single cycle, "run" iterates to convergence.
				Continuous:   cmd == "run" || container.Settings.Run.Continuous,
				Instructions: rest,
			}
			if err := container.Driver.Start(ctx, opts); err != nil {
				fmt.Printf("start failed: %v\n", err)
			}

		case "pause":
			if err := container.Driver.Pause(); err != nil {
				fmt.Printf("pause failed: %v\n", err)
			}

		case "resume":
			if err := container.Driver.Resume(); err != nil {
				fmt.Printf("resume failed: %v\n", err)
			}

		case "stop":
			container.Driver.Stop()

		case "reset":
			if err := container.Driver.Reset(); err != nil {
				fmt.Printf("reset failed: %v\n", err)
			}

		case "status":
			fmt.Printf("state: %s\n", container.Driver.State())

		case "check":
			if err := container.Driver.Check(ctx); err != nil {
				fmt.Printf("proposer check failed: %v\n", err)
			} else {
				fmt.Println("proposer reachable")
			}

		case "quit", "exit":
			container.Driver.Stop()
			container.Driver.Wait()
			return

		default:
			fmt.Printf("unknown command %q\n", cmd)
		}
	}
}

func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	parts := strings.SplitN(line, " ", 2)
	cmd := strings.ToLower(parts[0])
	rest := ""
	if len(parts) == 2 {
		rest = strings.TrimSpace(parts[1])
	}
	return cmd, rest
}
