// Command commander-craft builds Commander decks from a card database and a
// generative model, either as an HTTP service or from the command line.
package main

func main() {
	Execute()
}
