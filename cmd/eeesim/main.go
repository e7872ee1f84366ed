// Command eeesim simulates a point-to-point link whose two ends coalesce
// frames to save energy, and evaluates the results.
package main

import "github.com/tebeka/atexit"

func main() {
	atexit.Exit(Execute())
}
