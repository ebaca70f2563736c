// Command switchboard runs the conversational support agent.
package main

func main() {
	Execute()
}
