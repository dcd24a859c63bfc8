package main

import (
	"racesample/internal/app"
	"racesample/internal/appshell"
)

func main() { appshell.Main(app.RunContext) }
