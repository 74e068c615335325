package main

import (
	"os"
)

func main() {
	a := newApp(os.Stdout, os.Stderr)
	os.Exit(a.execute(os.Args[1:]))
}
