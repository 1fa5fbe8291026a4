package main

import "github.com/vietddude/walletlink/internal/cli"

func main() {
	cli.Execute()
}
