// Command serialboot simulates a serial boot loader device and uploads
// firmware images to one.
package main

import "github.com/moffa90/go-serialboot/cmd/serialboot/cmd"

func main() {
	cmd.Execute()
}
