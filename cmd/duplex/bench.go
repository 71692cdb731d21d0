package main

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/duplexkit/duplex-go/config"
	"github.com/duplexkit/duplex-go/route"
	"github.com/duplexkit/duplex-go/socket"
	"github.com/duplexkit/duplex-go/task"
)

func runBench(args []string) {
	if len(args) < 3 {
		log.Fatal("usage: duplex bench <addr> <key> <n>")
	}
	key, err := strconv.ParseUint(args[1], 0, 16)
	if err != nil {
		log.Fatal(err)
	}
	n, err := strconv.Atoi(args[2])
	if err != nil {
		log.Fatal(err)
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
	defer t.Cleanup("bench finished")
	start := time.Now()
	for i := 0; i < n; i++ {
		if _, err := call.Send(t, map[string]any{"i": i}); err != nil {
			log.Fatal(err)
		}
	}
	elapsed := time.Since(start)
	fmt.Printf("%d calls in %s (%.1f calls/sec)\n", n, elapsed, float64(n)/elapsed.Seconds())
}
