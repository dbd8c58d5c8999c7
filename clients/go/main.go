// ledgerchat CLI - command line client for a ledgerchat server
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/eldtechnologies/ledgerchat/clients/go/ledgerchat"
	"github.com/eldtechnologies/ledgerchat/internal/address"
	"github.com/eldtechnologies/ledgerchat/internal/models"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	client := ledgerchat.NewClient(os.Getenv("LEDGERCHAT_URL"))
	args := os.Args[2:]

	switch os.Args[1] {
	case "health":
		resp, err := client.Health()
		exitOnError(err)
		printJSON(resp)

	case "keygen":
		exitOnError(client.GenerateKeypair())
		exitOnError(client.SaveConfig())
		fmt.Printf("Identity: %s\n", client.Identity)

	case "whoami":
		requireIdentity(client)
		contact, err := client.ContactAddress(client.Identity)
		exitOnError(err)
		fmt.Printf("Identity: %s\n", client.Identity)
		fmt.Printf("Contact:  %s\n", contact)

	case "contact":
		requireIdentity(client)
		need(args, 2, "contact create|update <name> [data]")
		data := optional(args, 2, "")
		var receipt *ledgerchat.Receipt
		var err error
		switch args[0] {
		case "create":
			receipt, err = client.CreateContact(args[1], data)
		case "update":
			receipt, err = client.UpdateContact(args[1], data)
		default:
			fail("Usage: ledgerchat contact create|update <name> [data]")
		}
		exitOnError(err)
		printJSON(receipt)

	case "dm":
		requireIdentity(client)
		need(args, 3, "dm start|send <peer-identity> <message>")
		peer := parseAddress(args[1])
		var receipt *ledgerchat.Receipt
		var err error
		switch args[0] {
		case "start":
			receipt, err = client.StartConversation(peer, args[2])
		case "send":
			receipt, err = client.SendMessage(peer, args[2])
		default:
			fail("Usage: ledgerchat dm start|send <peer-identity> <message>")
		}
		exitOnError(err)
		printJSON(receipt)

	case "group":
		requireIdentity(client)
		need(args, 1, "group create|add ...")
		switch args[0] {
		case "create":
			need(args, 3, "group create <nonce> <name> [data]")
			nonce, err := strconv.ParseUint(args[1], 10, 16)
			if err != nil {
				fail("nonce must be an integer in [0, 65535]")
			}
			receipt, err := client.CreateGroup(uint16(nonce), args[2], optional(args, 3, ""))
			exitOnError(err)
			printJSON(receipt)
		case "add":
			need(args, 3, "group add <group-address> <member-identity> [member|admin]")
			role := models.RoleMember
			switch optional(args, 3, "member") {
			case "member":
			case "admin":
				role = models.RoleAdmin
			default:
				fail("role must be member or admin")
			}
			receipt, err := client.AddGroupMember(parseAddress(args[1]), parseAddress(args[2]), role)
			exitOnError(err)
			printJSON(receipt)
		default:
			fail("Usage: ledgerchat group create|add ...")
		}

	case "account":
		need(args, 1, "account <address>")
		resp, err := client.Account(parseAddress(args[0]))
		exitOnError(err)
		decoded, err := ledgerchat.DecodeAccount(resp)
		exitOnError(err)
		printJSON(map[string]interface{}{"address": resp.Address, "kind": resp.Kind, "account": decoded})

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`ledgerchat CLI

Usage: ledgerchat <command> [options]

Commands:
  keygen                                     Create and save a new identity
  whoami                                     Show identity and contact address
  contact create|update <name> [data]        Register or edit your contact
  dm start <peer> <message>                  Open a conversation with a peer identity
  dm send <peer> <message>                   Append to the conversation with a peer
  group create <nonce> <name> [data]         Create a group you own
  group add <group> <member> [member|admin]  Add a member identity to a group
  account <address>                          Show a stored account
  health                                     Check server health

Environment:
  LEDGERCHAT_URL     Server URL (default: http://localhost:8080)
  LEDGERCHAT_CONFIG  Config directory (default: ~/.ledgerchat)`)
}

func requireIdentity(c *ledgerchat.Client) {
	if c.PrivateKey == nil {
		fail("No identity. Run: ledgerchat keygen")
	}
}

func need(args []string, n int, usage string) {
	if len(args) < n {
		fail("Usage: ledgerchat " + usage)
	}
}

func optional(args []string, i int, def string) string {
	if len(args) > i {
		return args[i]
	}
	return def
}

func parseAddress(s string) address.Address {
	a, err := address.Parse(s)
	if err != nil {
		fail(fmt.Sprintf("invalid address %q: %v", s, err))
	}
	return a
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
