// Command calibrate drives the sorting servo to arbitrary angles so the
// open, close, and center positions can be found by hand. Run with -mock
// to exercise the command parser without hardware attached.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/sortacle/sortacle/internal/actuator"
)

var (
	serialPath = flag.String("serial", "/dev/ttyACM0", "Serial device for the servo controller")
	channel    = flag.Int("channel", 0, "Servo channel to drive")
	mock       = flag.Bool("mock", false, "Use a mock driver instead of real hardware")
)

func main() {
	flag.Parse()

	var driver actuator.Driver
	if *mock {
		driver = actuator.NewMockDriver()
	} else {
		var err error
		driver, err = actuator.NewSerialDriver(*serialPath)
		if err != nil {
			log.Fatalf("failed to open servo controller: %v", err)
		}
	}
	defer driver.Close()

	fmt.Println("=== SERVO CALIBRATION ===")
	fmt.Println("Type angles 0-180 to test positions")
	fmt.Println("Type 'q' to quit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("Test angle: ")
		if !scanner.Scan() {
			break
		}
		cmd := strings.TrimSpace(scanner.Text())
		if cmd == "q" {
			break
		}

		angle, err := strconv.ParseFloat(cmd, 64)
		if err != nil {
			fmt.Println("Invalid")
			continue
		}
		if angle < 0 || angle > 180 {
			fmt.Println("Use 0-180")
			continue
		}

		if err := driver.SetPosition(*channel, angle); err != nil {
			fmt.Printf("move failed: %v\n", err)
			continue
		}
		fmt.Printf("Servo at %.1f degrees\n", angle)
	}
}
