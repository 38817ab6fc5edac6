package main

import (
	"os"

	"pharma.fit/pharmascout/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
