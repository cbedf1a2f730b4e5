package main

import "TicketBlitz_Recommendation/client/recommend-cli/cmd"

func main() {
	cmd.Execute()
}
