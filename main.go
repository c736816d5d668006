// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/jamesstopford/big-dilly/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
