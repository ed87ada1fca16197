// Command glean turns photographed study material into organised
// markdown notes.
package main

import "github.com/gleanly/glean/internal/adapters/driving/cli"

func main() {
	cli.Execute()
}
