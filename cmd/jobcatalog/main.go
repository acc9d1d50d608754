package main

import (
	"os"

	"horse.fit/jobcatalog/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
