package gossipnet

import "fmt"

// Message is the payload exchanged by gossipnet nodes: a line of text signed
// with the moniker of its author.
type Message struct {
	From string `codec:"from"`
	Text string `codec:"text"`
}

// String ...
func (m Message) String() string {
	return fmt.Sprintf("%s: %s", m.From, m.Text)
}
