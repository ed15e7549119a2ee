// pocketchat - AI contacts, chats, and moments for your terminal and browser.
//
// Copyright (c) 2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import "github.com/jeranaias/pocketchat/internal/cli"

// Set via -ldflags at build time.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.Execute()
}
