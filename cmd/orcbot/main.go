// Command orcbot manages a fleet of worker agents: registering them,
// supervising their processes, delegating tasks and reporting usage.
package main

func main() {
	Execute()
}
