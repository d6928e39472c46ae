package main

import "github.com/vietddude/fetcher/internal/cli"

func main() {
	cli.Execute()
}
