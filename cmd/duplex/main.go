package main

import (
	"fmt"
	"log"
	"os"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
	}
	switch os.Args[1] {
	case "call":
		runCall(os.Args[2:])
	case "echo":
		runEcho(os.Args[2:])
	case "bench":
		runBench(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `duplex is a utility for working with the duplex protocol stack

usage:
  duplex call <addr> <key> [args...]   call a unary route
  duplex echo <addr> <key>             serve an echoing unary route
  duplex bench <addr> <key> <n>        time n unary calls`)
	os.Exit(2)
}
