package main

import (
	"context"
	"os"
)

func main() {
	sess := &session{}
	if err := execute(context.Background(), newRootCmd(os.Stdout, sess), sess); err != nil {
		os.Exit(1)
	}
}
