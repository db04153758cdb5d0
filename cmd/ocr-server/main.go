package main

import (
	"os"

	"github.com/webcomunicasolutions/paddleocr-a-medida/internal/logger"
)

func main() {
	cli := NewCLI(os.Stdout)
	if err := cli.Run(os.Args[1:]); err != nil {
		logger.Log.WithError(err).Fatal("Error")
	}
}
