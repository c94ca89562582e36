// Command signer generates keys, signs and verifies messages, and formats
// messages through the signer guest module.
//
// With --wasm the guest is loaded from a wasip1 build of cmd/signer-guest
// and run in wazero; without it the same guest code runs in process.
package main

func main() {
	execute()
}
