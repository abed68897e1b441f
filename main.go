package main

import (
	"context"
	"strings"
	"time"

	"devicediag-go/bus"
	"devicediag-go/crash"
	"devicediag-go/debug"
	"devicediag-go/netdiag"
	"devicediag-go/services/bridge"
	"devicediag-go/services/config"
	"devicediag-go/services/heartbeat"
	"devicediag-go/services/terminal"
	"devicediag-go/x/linebuf"
)

const loopPeriod = 100 * time.Millisecond

// platform is what the board (or host) provides to the diagnostics core.
type platform struct {
	device  string
	storage crash.Storage
	stack   netdiag.Stack   // nil when there is no TCP/IP stack
	input   terminal.Reader // nil disables the terminal
	sinks   func(ctx context.Context, cfg config.Diag) []linebuf.Sink
}

// drainer is a sink with deferred output to retry each loop pass.
type drainer interface{ Drain() }

// limiter is a sink whose chunking follows config.Diag.
type limiter interface{ SetLimits(limit, backlog int) }

func main() {
	ctx := context.Background()
	p := setupPlatform()
	println("[main] booting diagnostics for", p.device)

	// Boot config; the service republishes it once everything is subscribed.
	boot, _, err := config.Load(p.device)
	if err != nil {
		println("[main] config:", err.Error())
	}

	log := debug.New(debug.Config{Capacity: boot.BufferSize, Timestamps: boot.Timestamps})
	var drainers []drainer
	var limiters []limiter
	for _, s := range p.sinks(ctx, boot) {
		log.AddSink(s)
		if d, ok := s.(drainer); ok {
			drainers = append(drainers, d)
		}
		if l, ok := s.(limiter); ok {
			limiters = append(limiters, l)
		}
	}

	rec := crash.NewRecorder(p.storage, boot.StorageOffset, boot.TraceMax)
	defer rec.Catch()

	reg := bus.NewRegistry()
	bus.Subscribe(reg, func(_ bus.Source, d config.Diag) {
		log.Reconfigure(debug.Config{Capacity: d.BufferSize, Timestamps: d.Timestamps})
		for _, l := range limiters {
			l.SetLimits(d.ChunkLimit, d.Backlog)
		}
	})

	br := bridge.New(reg, 0)
	log.AddSink(br)
	go br.Run(ctx)

	hb := heartbeat.New(reg, log, nil, boot.HeartbeatS)

	cfgSvc := config.NewService(reg)
	_ = cfgSvc.Start(p.device)

	log.Msgf("Info: %s up, buffer=%d trace_max=%d\n", p.device, boot.BufferSize, boot.TraceMax)
	if c, err := rec.Load(); err == nil {
		crash.Report(log, c)
		if err := br.SendCrash(c); err != nil {
			log.Msgf("Warn: crash uplink: %s\n", err.Error())
		}
	} else {
		crash.ReportStored(log, rec)
	}
	log.Flush()

	var in chan []byte
	term := terminal.New(log, 0)
	var ins *netdiag.Inspector
	if p.stack != nil {
		ins = netdiag.NewInspector(p.stack)
	}
	term.RegisterBuiltins(terminal.Deps{Crash: rec, Net: ins, Log: log})
	term.Register(terminal.Command{
		Name: "config",
		Help: "apply a single-quoted JSON diagnostics document",
		Run: func(out terminal.Output, args []string) error {
			if err := cfgSvc.Apply([]byte(strings.Join(args, " "))); err != nil {
				return err
			}
			d := cfgSvc.Current()
			out.Msgf("config: buffer=%d heartbeat=%ds timestamps=%t\n", d.BufferSize, d.HeartbeatS, d.Timestamps)
			return nil
		},
	})
	if p.input != nil {
		in = make(chan []byte, 4)
		go func() {
			if err := terminal.ReadLoop(ctx, p.input, in); err != nil {
				println("[main] terminal input:", err.Error())
			}
		}()
		term.Prompt()
	}

	tick := time.NewTicker(loopPeriod)
	defer tick.Stop()
	for {
		select {
		case b := <-in:
			if term.Feed(b) > 0 {
				term.Prompt()
			}
		case <-tick.C:
			hb.Poll()
		}
		log.Flush()
		for _, d := range drainers {
			d.Drain()
		}
	}
}
