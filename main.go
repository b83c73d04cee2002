package main

import "github.com/ValentinKolb/dTravel/cmd"

func main() {
	cmd.Execute()
}
