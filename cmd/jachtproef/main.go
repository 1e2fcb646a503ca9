package main

import (
	"os"

	"horse.fit/jachtproef/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
