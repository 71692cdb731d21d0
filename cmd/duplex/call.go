package main

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/progrium/clon-go"

	"github.com/duplexkit/duplex-go/config"
	"github.com/duplexkit/duplex-go/route"
	"github.com/duplexkit/duplex-go/socket"
	"github.com/duplexkit/duplex-go/task"
)

func runCall(args []string) {
	if len(args) < 2 {
		log.Fatal("usage: duplex call <addr> <key> [args...]")
	}
	key, err := strconv.ParseUint(args[1], 0, 16)
	if err != nil {
		log.Fatal(err)
	}

	var payload any
	if len(args) > 2 {
		payload, err = clon.Parse(args[2:])
		if err != nil {
			log.Fatal(err)
		}
	}

	o := config.Default()
	sock, err := socket.DialWS(args[0], o.OutboxCapacity, o.InboxCapacity)
	if err != nil {
		log.Fatal(err)
	}

	r := route.NewRouter(o)
	call := route.Send[any, any](r, route.WithKey(uint16(key)))
	if _, err := r.Start(sock); err != nil {
		log.Fatal(err)
	}

	t := task.New()
	defer t.Cleanup("call finished")
	ret, err := call.Send(t, payload)
	if err != nil {
		log.Fatal(err)
	}

	b, err := json.MarshalIndent(ret, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(b))
}
