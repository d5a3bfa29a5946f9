package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"fpgacnc/firmware"
	"fpgacnc/protocol"
)

var (
	configPath = flag.String("config", "", "Board configuration JSON file")
	dumpLayout = flag.Bool("dump-layout", false, "Print the register layout and exit")
	dumpDict   = flag.String("dump-dict", "", "Write the compressed board dictionary to a file and exit")
	serveAddr  = flag.String("serve", "", "Simulate the board and serve the register protocol on a TCP address")
	tickRate   = flag.Int("tick-rate", 10000, "Simulation ticks per second in serve mode")
	verbose    = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -config is required")
		flag.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	config, err := firmware.LoadConfig(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fw, result, err := firmware.Build(config)
	if result != nil {
		for _, w := range result.Warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
		}
	}
	if err != nil {
		if result != nil {
			for _, e := range result.Errors {
				fmt.Fprintf(os.Stderr, "Error: %v\n", e)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Board %s: %d registers, %d words, clock %d Hz\n",
			config.BoardName, fw.Map.Len(), fw.Map.Words(), config.ClockFrequency)
	}

	switch {
	case *dumpLayout:
		printLayout(fw)
	case *dumpDict != "":
		if err := writeDictionary(fw, *dumpDict); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case *serveAddr != "":
		if err := serve(fw, *serveAddr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Printf("Configuration OK: board %s, %d registers, %d words\n",
			config.BoardName, fw.Map.Len(), fw.Map.Words())
	}
}

func printLayout(fw *firmware.Firmware) {
	fmt.Printf("Register layout for %s (%d words)\n\n", fw.Config.BoardName, fw.Map.Words())
	fmt.Printf("%-6s %-6s %-6s %s\n", "ADDR", "WORDS", "DIR", "NAME")
	for _, r := range fw.Map.Registers() {
		fmt.Printf("%-6d %-6d %-6s %s\n", r.Addr, r.Words, r.Dir, r.Name)
	}
}

func writeDictionary(fw *firmware.Firmware, path string) error {
	encoded, err := firmware.BuildDictionary(fw.Config, fw.Map).Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote dictionary (%d bytes compressed) to %s\n", len(encoded), path)
	return nil
}

// lockedBus serializes protocol register access against the simulation
// ticker; the register file itself is not safe for concurrent use.
type lockedBus struct {
	mu sync.Mutex
	fw *firmware.Firmware
}

func (b *lockedBus) ReadWords(addr, count int) ([]uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fw.Board.File().ReadWords(addr, count)
}

func (b *lockedBus) WriteWords(addr int, words []uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fw.Board.File().WriteWords(addr, words)
}

func (b *lockedBus) tick() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fw.Board.Tick()
}

func serve(fw *firmware.Firmware, addr string) error {
	dict, err := firmware.BuildDictionary(fw.Config, fw.Map).Encode()
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer listener.Close()
	fmt.Printf("Simulating board %s on %s (%d ticks/s)\n",
		fw.Config.BoardName, listener.Addr(), *tickRate)

	bus := &lockedBus{fw: fw}
	go func() {
		ticker := time.NewTicker(time.Second / time.Duration(*tickRate))
		defer ticker.Stop()
		for range ticker.C {
			bus.tick()
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		if *verbose {
			fmt.Printf("Host connected from %s\n", conn.RemoteAddr())
		}

		go func() {
			defer conn.Close()
			server := protocol.NewServer(conn, bus)
			server.SetIdentifyData(dict)
			if err := server.Serve(); err != nil && *verbose {
				fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
			}
		}()
	}
}
