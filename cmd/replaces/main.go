package main

import (
	"replaces-backend/cmd/replaces/commands"
	"replaces-backend/internal/components/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
