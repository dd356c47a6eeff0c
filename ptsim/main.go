// Command ptsim replays memory access traces against a simulated page table.
package main

import "github.com/sarchlab/pagesim/ptsim/cmd"

func main() {
	cmd.Execute()
}
