package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"fpgacnc/firmware"
	"fpgacnc/host/driver"
	"fpgacnc/host/serial"
	"fpgacnc/protocol"
)

var (
	device  = flag.String("device", "", "Serial device path (e.g. /dev/ttyUSB0)")
	tcpAddr = flag.String("tcp", "", "Connect over TCP instead of serial (e.g. localhost:7788)")
	baud    = flag.Int("baud", 1000000, "Baud rate for the UART bridge")
)

func main() {
	flag.Parse()

	port, err := openPort()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	transport := protocol.NewHostTransport(port)
	defer transport.Close()

	// The dictionary tells us which board we are talking to and how its
	// registers are laid out.
	fmt.Println("Fetching board dictionary...")
	data, err := transport.Identify()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: identify failed: %v\n", err)
		os.Exit(1)
	}
	dict, err := firmware.DecodeDictionary(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	counts := driver.Counts{
		GPIOIn:   dict.Counts.GPIOIn,
		GPIOOut:  dict.Counts.GPIOOut,
		PWMs:     dict.Counts.PWMs,
		Stepgens: dict.Counts.Stepgens,
		Encoders: dict.Counts.Encoders,
	}
	d := driver.New(transport, counts)

	fmt.Printf("Connected to %s: %d gpio in, %d gpio out, %d pwm, %d stepgen, %d encoder\n",
		dict.BoardName, counts.GPIOIn, counts.GPIOOut, counts.PWMs, counts.Stepgens, counts.Encoders)
	fmt.Printf("Layout fingerprint: %04x\n", d.Layout().Fingerprint())

	runShell(d, dict)
}

func openPort() (io.ReadWriteCloser, error) {
	switch {
	case *tcpAddr != "":
		return net.Dial("tcp", *tcpAddr)
	case *device != "":
		cfg := serial.DefaultConfig(*device)
		cfg.Baud = *baud
		cfg.ReadTimeout = 0 // the transport read loop blocks
		return serial.Open(cfg)
	default:
		return nil, fmt.Errorf("one of -device or -tcp is required")
	}
}

func runShell(d *driver.Driver, dict *firmware.Dictionary) {
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		var err error
		switch parts[0] {
		case "quit", "exit", "q":
			return
		case "help", "?":
			printHelp()
		case "regs":
			for _, r := range dict.Registers {
				dir := "read"
				if r.Write {
					dir = "write"
				}
				fmt.Printf("  %3d  %d  %-5s  %s\n", r.Addr, r.Words, dir, r.Name)
			}
		case "status":
			err = printStatus(d)
		case "wd":
			err = cmdWatchdog(d, parts[1:])
		case "out":
			err = cmdOut(d, parts[1:])
		case "in":
			err = cmdIn(d, parts[1:])
		case "counter":
			err = cmdCounter(d, parts[1:])
		case "arm":
			err = cmdIndexArm(d, parts[1:])
		case "ack":
			err = cmdIndexAck(d, parts[1:])
		default:
			fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", parts[0])
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  status            - Wall clock, watchdog state and encoder counts")
	fmt.Println("  regs              - Print the register map")
	fmt.Println("  wd <ticks>        - Arm/feed the watchdog (0 disarms)")
	fmt.Println("  out <pin> <0|1>   - Drive a GPIO output pin")
	fmt.Println("  in <pin>          - Read a GPIO input pin")
	fmt.Println("  counter <n>       - Read encoder n")
	fmt.Println("  arm <n>           - Arm encoder n's index reset")
	fmt.Println("  ack <n>           - Acknowledge encoder n's index pulse")
	fmt.Println("  quit/exit/q       - Exit")
	fmt.Println()
}

func printStatus(d *driver.Driver) error {
	clock, err := d.WallClock()
	if err != nil {
		return err
	}
	bitten, err := d.HasBitten()
	if err != nil {
		return err
	}
	fmt.Printf("wall clock: %d ticks, watchdog bitten: %v\n", clock, bitten)

	counts, err := d.Counters()
	if err != nil {
		return err
	}
	for i, c := range counts {
		pulse, err := d.IndexPulse(i)
		if err != nil {
			return err
		}
		fmt.Printf("encoder %d: count %d, index pulse %v\n", i, c, pulse)
	}
	return nil
}

func cmdWatchdog(d *driver.Driver, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: wd <ticks>")
	}
	ticks, err := strconv.ParseUint(args[0], 10, 31)
	if err != nil {
		return err
	}
	return d.SetWatchdog(ticks > 0, uint32(ticks))
}

func cmdOut(d *driver.Driver, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: out <pin> <0|1>")
	}
	pin, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	return d.SetOutputPin(pin, args[1] != "0")
}

func cmdIn(d *driver.Driver, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: in <pin>")
	}
	pin, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	v, err := d.InputPin(pin)
	if err != nil {
		return err
	}
	fmt.Printf("pin %d: %v\n", pin, v)
	return nil
}

func cmdCounter(d *driver.Driver, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: counter <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	c, err := d.Counter(n)
	if err != nil {
		return err
	}
	fmt.Printf("encoder %d: %d\n", n, c)
	return nil
}

func cmdIndexArm(d *driver.Driver, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: arm <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	return d.SetIndexEnable(n)
}

func cmdIndexAck(d *driver.Driver, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: ack <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	return d.AckIndexPulse(n)
}
