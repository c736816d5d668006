// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

// Result is the outcome of a store operation. Store methods never return errors;
// callers check Success and show Error to the user.
type Result struct {
	Success bool
	Error   string
}

func succeeded() Result { return Result{Success: true} }

func rejected(message string) Result { return Result{Error: message} }

func failed(err error, fallback string) Result {
	return Result{Error: errorMessage(err, fallback)}
}
