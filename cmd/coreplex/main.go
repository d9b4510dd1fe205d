// The coreplex command elaborates outer-memory-system topologies and
// answers address-routing queries over them.
package main

func main() {
	Execute()
}
