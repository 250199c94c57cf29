package main

import "github.com/boozedog/ticketflow/cmd"

func main() {
	cmd.Execute()
}
