package main

import (
	"domainhub/internal/ctl"
)

func main() {
	ctl.Execute()
}
