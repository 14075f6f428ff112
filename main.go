package main

import (
	"os"

	"github.com/lwagner94/wasmut-sub000/cmd"
	"github.com/lwagner94/wasmut-sub000/wasmutlog"
)

func main() {
	if err := cmd.Command(nil, "wasmut").Execute(); err != nil {
		wasmutlog.Errorf("%v", err)
		os.Exit(1)
	}
}
