package main

import "github.com/andresmejia3/stable/cmd"

func main() {
	cmd.Execute()
}
