// puppettool is a CLI utility for inspecting puppet model bundles.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "header":
		err = cmdHeader(args)
	case "info":
		err = cmdInfo(args)
	case "motion":
		err = cmdMotion(args)
	case "plot":
		err = cmdPlot(args)
	case "simulate", "sim":
		err = cmdSimulate(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`puppettool - puppet model bundle utility

Usage:
  puppettool <command> [options]

Commands:
  header <file.moc3>                  Show compiled model header
  info [-runtime r] <model.model3.json>
                                      Show parameters, parts, drawables and motions
  motion <file.motion3.json>          Show motion meta, curves and events
  plot [-samples n] [-height h] [-policy p] <file.motion3.json> <curve-id>
                                      Plot one curve over the motion's duration
  simulate [-runtime r] [-seconds s] [-rate hz] [-motion group] [-index i] [-param id]
           <model.model3.json>        Run the puppet headless and report each second

Examples:
  puppettool header hiyori.moc3
  puppettool info -runtime cubism hiyori.model3.json
  puppettool plot motions/idle.motion3.json ParamAngleX
  puppettool simulate -motion Idle -param ParamHairFront pendulum.model3.json`)
}
