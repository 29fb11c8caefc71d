package main

import (
	"context"
	"os"

	"kitchen-dashboard/internal/kitchen"
	"kitchen-dashboard/pkg/logger"
)

func main() {
	mylog := logger.NewLogger("kitchen-dashboard")

	if err := kitchen.Execute(context.Background(), mylog); err != nil {
		mylog.Error("", "fatal", "Kitchen dashboard terminated", err)
		os.Exit(1)
	}
}
