package main

import (
	"log"
	"strconv"

	"github.com/duplexkit/duplex-go/config"
	"github.com/duplexkit/duplex-go/logger"
	"github.com/duplexkit/duplex-go/route"
	"github.com/duplexkit/duplex-go/socket"
)

func runEcho(args []string) {
	if len(args) < 2 {
		log.Fatal("usage: duplex echo <addr> <key>")
	}
	key, err := strconv.ParseUint(args[1], 0, 16)
	if err != nil {
		log.Fatal(err)
	}

	o := config.Default()
	if err := logger.Init(o.Log); err != nil {
		log.Fatal(err)
	}

	l, err := socket.ListenWS(args[0], o.OutboxCapacity, o.InboxCapacity)
	if err != nil {
		log.Fatal(err)
	}
	log.Println("listening on", args[0])

	for {
		sock, err := l.Accept()
		if err != nil {
			log.Fatal(err)
		}
		r := route.NewRouter(o)
		route.Recv[any, any](r, func(v any) (any, error) {
			return v, nil
		}, route.WithKey(uint16(key)))
		if _, err := r.Start(sock); err != nil {
			log.Fatal(err)
		}
	}
}
