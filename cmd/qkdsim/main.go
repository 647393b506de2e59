// Command qkdsim runs the BB84 quantum key distribution simulator, either
// as a one-shot CLI run or as an HTTP API server.
package main

func main() {
	Execute()
}
