package main

import "github.com/ValentinKolb/dStore/cmd"

func main() {
	cmd.Execute()
}
