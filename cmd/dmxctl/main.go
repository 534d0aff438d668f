package main

import (
	"fmt"
	"os"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"dmxctl/internal/adapter/primary/cli"
)

func main() {
	defer midi.CloseDriver()

	if err := cli.NewRootCmd().Execute(); err != nil {
		midi.CloseDriver()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
