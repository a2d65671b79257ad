// main.go
//
// Entry point for the token-bucket shaper emulator; CLI handling lives in cmd/root.go

package main

import (
	"github.com/inference-sim/token-shaper/cmd"
)

func main() {
	cmd.Execute()
}
