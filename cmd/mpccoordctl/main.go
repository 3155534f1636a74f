// Command mpccoordctl is a debug CLI client for the mpc-coordinator
// daemon: it dials the coordinator's WebSocket endpoint and sends
// JSON-RPC requests by hand, printing whatever comes back.
package main

import "github.com/coinfabrik/mpc-coordinator/cmd/mpccoordctl/commands"

func main() {
	commands.Execute()
}
