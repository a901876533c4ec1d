package main

import "github.com/kapu/herobuilds-api-go/internal/cli"

func main() {
	cli.Execute()
}
